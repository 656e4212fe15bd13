package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// Stable machine-readable error codes exposed to API clients. The human-readable
// message is the contract the existing frontend displays; codes only ever get added.
const (
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeConflict         = "conflict"
	CodeDeadlineExceeded = "deadline_exceeded"
	CodeServerError      = "server_error"
)

// Error is a domain error carrying a stable code and the HTTP status it maps to.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func NewError(code string, status int, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

func NewBadRequestError(msg string) *Error {
	return NewError(CodeBadRequest, http.StatusBadRequest, msg)
}

func NewNotFoundError(msg string) *Error {
	return NewError(CodeNotFound, http.StatusNotFound, msg)
}

func NewForbiddenError(msg string) *Error {
	return NewError(CodeForbidden, http.StatusForbidden, msg)
}

// NewConflictError rides HTTP 400: the existing client only distinguishes
// conflicts by the stable code, not the status.
func NewConflictError(msg string) *Error {
	return NewError(CodeConflict, http.StatusBadRequest, msg)
}

// NewDeadlineExceededError rides HTTP 400 for the same reason.
func NewDeadlineExceededError(msg string) *Error {
	return NewError(CodeDeadlineExceeded, http.StatusBadRequest, msg)
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
