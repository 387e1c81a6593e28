// Package errors is the project error type: a code for machines, a message for
// people, and optionally the offending field and the operation. Import it as perr
package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable class of an error. The numeric values go
// over the wire, so new codes are appended
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable // a dependency is down or warming up, retry later
	ErrorCodeTooManyRequests
	ErrorCodeConflict // state does not allow the operation, like resuming a completed job
	ErrorCodeUnauthorized
	ErrorCodeForbidden
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	ErrorCodeTimeout
)

var statusOf = [...]int{
	ErrorCodeUnknown:         http.StatusInternalServerError,
	ErrorCodePanic:           http.StatusInternalServerError,
	ErrorCodeUnavailable:     http.StatusServiceUnavailable,
	ErrorCodeTooManyRequests: http.StatusTooManyRequests,
	ErrorCodeConflict:        http.StatusConflict,
	ErrorCodeUnauthorized:    http.StatusUnauthorized,
	ErrorCodeForbidden:       http.StatusForbidden,
	ErrorCodeInvalidArgument: http.StatusUnprocessableEntity,
	ErrorCodeValidation:      http.StatusBadRequest,
	ErrorCodeJSON:            http.StatusBadRequest,
	ErrorCodeNotFound:        http.StatusNotFound,
	ErrorCodeDuplicateKey:    http.StatusConflict,
	ErrorCodeDB:              http.StatusInternalServerError,
	ErrorCodeTimeout:         http.StatusGatewayTimeout,
}

// HTTPStatusCode maps a code to its HTTP status, 500 for codes it does not know
func HTTPStatusCode(c ErrorCode) int {
	if int(c) < len(statusOf) {
		return statusOf[c]
	}
	return http.StatusInternalServerError
}

// Error carries a code and message, wrapping an optional cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Wire is the client facing part of an error
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.orig != nil:
		return e.msg + ": " + e.orig.Error()
	default:
		return e.msg
	}
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field names the input that was rejected, if any
func (e *Error) Field() string { return e.field }

// Op is the operation label set with WithOp
func (e *Error) Op() string { return e.op }

// As finds our *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// Root returns the innermost cause
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

// CodeOf returns err's code. Foreign errors are Unknown, except a bare deadline
// which is a Timeout so slow upstreams surface as 504
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// WireFrom builds the client payload for err, zero for nil
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return Wire{Code: CodeOf(err), Message: err.Error()}
}

// with copies the outermost *Error in err and applies fn, foreign errors pass through
func with(err error, fn func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	fn(&c)
	return &c
}

// WithField returns err naming the offending input field
func WithField(err error, field string) error { return with(err, func(e *Error) { e.field = field }) }

// WithOp returns err labelled with the operation that failed
func WithOp(err error, op string) error { return with(err, func(e *Error) { e.op = op }) }

// New returns an error with code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns an error with code and a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns an error with code and message caused by orig
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf is Wrap with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return Wrap(orig, code, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error     { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error   { return Newf(ErrorCodeInvalidArgument, format, a...) }
func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }
func DBf(format string, a ...any) error           { return Newf(ErrorCodeDB, format, a...) }
func JSONErrf(format string, a ...any) error      { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error     { return Newf(ErrorCodePanic, format, a...) }
func Conflictf(format string, a ...any) error     { return Newf(ErrorCodeConflict, format, a...) }
func Unavailablef(format string, a ...any) error  { return Newf(ErrorCodeUnavailable, format, a...) }
func Timeoutf(format string, a ...any) error      { return Newf(ErrorCodeTimeout, format, a...) }
