package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"commitflow/internal/platform/config"
	"commitflow/internal/platform/logger"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// docSource lets tests serve a different document
var docSource = func() []byte { return openapiYAML }

type object = map[string]any

var errorSchema = object{
	"type":        "object",
	"description": "Error envelope",
	"required":    []any{"status_code", "status"},
	"properties": object{
		"status_code": object{"type": "integer", "format": "int32"},
		"status":      object{"type": "string"},
		"code":        object{"type": "integer", "format": "int32"},
		"error":       object{"type": "string"},
		"request_id":  object{"type": "string"},
	},
}

// errorResponses are added to every operation that does not declare them
var errorResponses = map[string]object{
	"400": errorResponse("Bad Request", "invalid JSON: unexpected EOF"),
	"500": errorResponse("Internal Server Error", "panic recovered"),
}

func errorResponse(status, example string) object {
	return object{
		"description": status,
		"content": object{"application/json": object{
			"schema":  object{"$ref": "#/components/schemas/ErrorResponse"},
			"example": object{"status": status, "error": example},
		}},
	}
}

// Spec decodes the embedded document for serving under base. The version is
// pinned to 3.0.3 since the bundled UI cannot render 3.1, and titleSuffix,
// when set, is appended to the title.
func Spec(base, titleSuffix string) (object, error) {
	var doc object
	if err := yaml.Unmarshal(docSource(), &doc); err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}
	delete(doc, "swagger")
	doc["openapi"] = "3.0.3"
	if _, ok := doc["servers"]; !ok {
		doc["servers"] = []any{object{"url": base}}
	}
	if info, ok := doc["info"].(object); ok && titleSuffix != "" {
		info["title"] = fmt.Sprint(info["title"]) + " " + titleSuffix
	}

	schemas := child(child(doc, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = errorSchema
	}
	paths, _ := doc["paths"].(object)
	for _, p := range paths {
		item, _ := p.(object)
		for _, op := range item {
			op, ok := op.(object)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			for code, r := range errorResponses {
				if _, ok := resps[code]; !ok {
					resps[code] = r
				}
			}
		}
	}
	return doc, nil
}

// child returns m[key] as an object, creating it when absent
func child(m object, key string) object {
	c, ok := m[key].(object)
	if !ok {
		c = object{}
		m[key] = c
	}
	return c
}

func serveDocJSON(base string) http.HandlerFunc {
	suffix := config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", "")
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := Spec(base, suffix)
		if err != nil {
			logger.C(r.Context()).Error().Err(err).Msg("openapi document unreadable")
			http.Error(w, "openapi document unreadable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(doc)
	}
}
