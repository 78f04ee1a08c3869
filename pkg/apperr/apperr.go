// Package apperr carries the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalid         Code = "invalid"
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeAlreadyFinished Code = "already_finished"
	CodeNotFinished     Code = "not_finished"
	CodeTooManyRequests Code = "too_many_requests"
	CodeUpstream        Code = "upstream"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, msg string) error { return &Error{Code: code, Message: msg} }

func Wrap(code Code, msg string, cause error) error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

func Invalid(msg string) error         { return New(CodeInvalid, msg) }
func Unauthenticated(msg string) error { return New(CodeUnauthenticated, msg) }
func Forbidden(msg string) error       { return New(CodeForbidden, msg) }
func NotFound(msg string) error        { return New(CodeNotFound, msg) }
func Conflict(msg string) error        { return New(CodeConflict, msg) }
func TooManyRequests(msg string) error { return New(CodeTooManyRequests, msg) }

func Upstream(msg string, cause error) error { return Wrap(CodeUpstream, msg, cause) }

// Attempt state-machine rejections.
var (
	ErrAttemptFinished    = New(CodeAlreadyFinished, "attempt already finished")
	ErrAttemptNotFinished = New(CodeNotFinished, "attempt not finished")
	ErrAttemptNotFound    = New(CodeNotFound, "attempt not found")
)

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, CodeUpstream for untyped errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUpstream
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyFinished, CodeNotFinished:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
