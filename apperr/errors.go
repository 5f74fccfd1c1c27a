// Package apperr defines the error kinds returned by services and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindInsufficientInventory
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindInternal:              "internal",
	KindValidation:            "validation",
	KindUnauthorized:          "unauthorized",
	KindForbidden:             "forbidden",
	KindNotFound:              "not_found",
	KindConflict:              "conflict",
	KindInsufficientFunds:     "insufficient_funds",
	KindInsufficientInventory: "insufficient_inventory",
	KindRateLimited:           "rate_limited",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInsufficientFunds, KindInsufficientInventory:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a user-facing error. Msg is safe to show to clients; Err is the
// underlying cause and is only exposed outside production.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
	// RetryAfter is set on KindRateLimited, in seconds.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error   { return newf(KindValidation, format, args...) }
func Unauthorized(format string, args ...any) *Error { return newf(KindUnauthorized, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error     { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(KindConflict, format, args...) }

func InsufficientFunds(format string, args ...any) *Error {
	return newf(KindInsufficientFunds, format, args...)
}

func InsufficientInventory(format string, args ...any) *Error {
	return newf(KindInsufficientInventory, format, args...)
}

// RateLimited rejects a request until retryAfter seconds have passed.
func RateLimited(msg string, retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Msg: msg, RetryAfter: retryAfter}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
