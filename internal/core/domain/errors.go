package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrTransport  = errors.New("transport error")
	ErrAuth       = errors.New("authorization error")
	ErrBusiness   = errors.New("business error")
	ErrValidation = errors.New("validation error")
	ErrSync       = errors.New("sync error")
)

// Error carries a normalized, user-facing message alongside its kind.
// Status is the HTTP status when a response was received, Code the envelope
// code when the server answered with one.
type Error struct {
	Kind    error
	Message string
	Status  int
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewValidationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func NewTransportError(message string, err error) *Error {
	return &Error{Kind: ErrTransport, Message: message, Err: err}
}

func NewAuthError(status int, message string) *Error {
	return &Error{Kind: ErrAuth, Status: status, Message: message}
}

func NewBusinessError(status, code int, message string) *Error {
	return &Error{Kind: ErrBusiness, Status: status, Code: code, Message: message}
}

func NewSyncError(message string, err error) *Error {
	return &Error{Kind: ErrSync, Message: message, Err: err}
}
