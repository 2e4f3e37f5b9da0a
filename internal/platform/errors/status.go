package errors

import (
	"context"
	stderrs "errors"
	"net/http"
)

var statusByCode = map[ErrorCode]int{
	ErrorCodeNotFound:        http.StatusNotFound,
	ErrorCodeInvalidArgument: http.StatusUnprocessableEntity,
	ErrorCodeDataQuality:     http.StatusUnprocessableEntity,
	ErrorCodeSchemaMismatch:  http.StatusUnprocessableEntity,
	ErrorCodeDuplicateKey:    http.StatusConflict,
	ErrorCodeConflict:        http.StatusConflict,
	ErrorCodeJSON:            http.StatusBadRequest,
	ErrorCodeUnauthorized:    http.StatusUnauthorized,
	ErrorCodeTooManyRequests: http.StatusTooManyRequests,
	ErrorCodeUnavailable:     http.StatusServiceUnavailable,
	ErrorCodeFatalFetch:      http.StatusBadGateway,
	ErrorCodeFetchExhausted:  http.StatusBadGateway,
}

// HTTPStatus maps err's code to a status; anything unmapped is a 500
func HTTPStatus(err error) int {
	if s, ok := statusByCode[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

var kindByCode = map[ErrorCode]string{
	ErrorCodeFatalFetch:      "FatalFetchError",
	ErrorCodeFetchExhausted:  "TransientFetchExhausted",
	ErrorCodeDataQuality:     "DataQualityError",
	ErrorCodeSchemaMismatch:  "SchemaMismatchError",
	ErrorCodePartitionLoad:   "PartitionLoadError",
	ErrorCodeCorruptArtifact: "CorruptArtifact",
	ErrorCodeInvalidArgument: "InvalidArgument",
	ErrorCodeNotFound:        "NotFound",
	ErrorCodeConflict:        "Conflict",
	ErrorCodeUnavailable:     "Unavailable",
	ErrorCodeDB:              "DatabaseError",
}

// Kind is the stable name a failed run records for c
func Kind(c ErrorCode) string {
	if n, ok := kindByCode[c]; ok {
		return n
	}
	return "Unknown"
}

// KindOf names err the way Kind does. nil is "" and a bare context
// cancellation or deadline is "Canceled".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if _, ours := As(err); !ours &&
		(stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded)) {
		return "Canceled"
	}
	return Kind(CodeOf(err))
}
