// Package apperr defines the error codes surfaced to API clients and their
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeCreatorNotFound Code = "CREATOR_NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps a code to the status returned by the API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		// CREATOR_NOT_FOUND is a referential integrity fault, not a caller mistake.
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Field is set for INVALID_INPUT errors that
// concern a single request field.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidInput    = &Error{Code: CodeInvalidInput}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated}
	ErrRateLimited     = &Error{Code: CodeRateLimited}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrCreatorNotFound = &Error{Code: CodeCreatorNotFound}
	ErrUnavailable     = &Error{Code: CodeUnavailable}
)

func InvalidInput(field, reason string) *Error {
	return &Error{Code: CodeInvalidInput, Field: field, Message: reason}
}

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func CreatorNotFound(postID string) *Error {
	return &Error{Code: CodeCreatorNotFound, Message: "creator for post " + postID + " not found"}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Code: CodeUnavailable, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
