package errs

import (
	"errors"
	"net/http"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	// NotFound means a request path resolved to no file under the content root.
	NotFound Code = "not_found"
	// TargetNotFound means an interaction named a widget that is not on the page.
	// Widget callers treat it as a no-op.
	TargetNotFound Code = "target_not_found"
	RateLimited    Code = "rate_limited"
	Unavailable    Code = "unavailable"
	Internal       Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code
	}
	return Internal
}

// MessageOf returns a client-facing error message.
// Untyped errors collapse to "internal error" so file system paths and
// storage endpoints never reach a response body.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound, TargetNotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTP writes err as a plain-text response with the mapped status.
func WriteHTTP(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(HTTPStatus(code))
	_, _ = w.Write([]byte(MessageOf(err)))
}
