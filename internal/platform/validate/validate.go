// Package validate holds the process-wide validator used for config structs,
// extraction windows and HTTP payloads
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError aliases validator.FieldError
type FieldError = validator.FieldError

// Svc holds a singleton validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Svc

	repoSlugRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9._-]+$`)
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Get returns the validator singleton with english translations and json/env tag names
func Get() *Svc {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(tagName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		register(v, trans, "repo_slug", "{0} must look like owner/name", func(fl validator.FieldLevel) bool {
			return repoSlugRe.MatchString(fl.Field().String())
		})
		register(v, trans, "logical_date", "{0} must be a YYYY-MM-DD date", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) == 10 && s[4] == '-' && s[7] == '-'
		})
		register(v, trans, "ch_ident", "{0} must be a plain identifier", func(fl validator.FieldLevel) bool {
			return identRe.MatchString(fl.Field().String())
		})
		shortMsg(v, trans, "min", "{0} must be at least {1}")
		shortMsg(v, trans, "max", "{0} must be at most {1}")

		svc = &Svc{Validator: v, Translator: trans}
	})
	return svc
}

// Struct validates s and maps the first failure to perr.ErrorCodeInvalidArgument
// with the offending field attached
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Wrap(err, perr.ErrorCodeUnknown, "validation error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeInvalidArgument, "%s", msg), field)
}

// FieldAndMessage returns the first field and translated message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	return "", err.Error()
}

// tagName prefers json, then env, then the Go field name
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "env"} {
		tag := fld.Tag.Get(key)
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" && tag != "-" {
			return tag
		}
	}
	return fld.Name
}

func register(v *validator.Validate, trans ut.Translator, tag, text string, fn validator.Func) {
	_ = v.RegisterValidation(tag, fn)
	shortMsg(v, trans, tag, text)
}

func shortMsg(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
