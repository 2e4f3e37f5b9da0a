// Package errors is the project error type: a code for machines, a message
// for people, and an optional field and op label. Import it as perr.
package errors

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies an error. Codes travel on the wire; append only.
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeTooManyRequests
	ErrorCodeConflict
	ErrorCodeUnauthorized
	ErrorCodeInvalidArgument
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB

	// pipeline failures, recorded on runs by Kind

	ErrorCodeFatalFetch      // upstream answered with something retrying cannot fix
	ErrorCodeFetchExhausted  // a page stayed transiently broken past the retry bound
	ErrorCodeDataQuality     // excluded row ratio over threshold
	ErrorCodeSchemaMismatch  // staged or destination columns differ from the contract
	ErrorCodePartitionLoad   // warehouse rejected the partition replace
	ErrorCodeCorruptArtifact // a bronze or staging file cannot be read back
)

// ErrNotFound is the shared not-found sentinel
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code and message, optionally wrapping a cause
type Error struct {
	code  ErrorCode
	msg   string
	field string
	op    string
	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field names the offending input, if any
func (e *Error) Field() string { return e.field }

// Op is the operation label, if any
func (e *Error) Op() string { return e.op }

// Wire is the JSON form of an error
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// WireFrom renders any error for the wire; foreign errors become Unknown
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// As finds the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf is the code of err, Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err carries code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// Root unwraps err to its innermost cause
func Root(err error) error {
	for err != nil {
		next := stderrs.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

// WithField returns a copy of err naming field; foreign errors pass through
func WithField(err error, field string) error {
	return edit(err, func(e *Error) { e.field = field })
}

// WithOp returns a copy of err labelled with op; foreign errors pass through
func WithOp(err error, op string) error {
	return edit(err, func(e *Error) { e.op = op })
}

func edit(err error, fn func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	fn(&c)
	return &c
}

// New builds an *Error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf builds an *Error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return New(code, fmt.Sprintf(format, a...))
}

// Wrap builds an *Error around cause
func Wrap(cause error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, cause: cause}
}

// Wrapf builds an *Error around cause with a formatted message
func Wrapf(cause error, code ErrorCode, format string, a ...any) error {
	return Wrap(cause, code, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error     { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error   { return Newf(ErrorCodeInvalidArgument, format, a...) }
func JSONErrf(format string, a ...any) error      { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error     { return Newf(ErrorCodePanic, format, a...) }
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }
func Conflictf(format string, a ...any) error     { return Newf(ErrorCodeConflict, format, a...) }
func Unavailablef(format string, a ...any) error  { return Newf(ErrorCodeUnavailable, format, a...) }
func Internalf(format string, a ...any) error     { return Newf(ErrorCodeUnknown, format, a...) }
func FatalFetchf(format string, a ...any) error   { return Newf(ErrorCodeFatalFetch, format, a...) }
func DataQualityf(format string, a ...any) error  { return Newf(ErrorCodeDataQuality, format, a...) }
func SchemaMismatchf(format string, a ...any) error {
	return Newf(ErrorCodeSchemaMismatch, format, a...)
}
