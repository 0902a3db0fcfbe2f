package services

import (
	"errors"
	"fmt"
)

// ErrorCode classifies service failures; handlers map each code to an HTTP status.
type ErrorCode int

const (
	ErrValidation ErrorCode = iota + 1000
	ErrAuthentication
	ErrAuthorization
	ErrNotFound
	ErrInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrValidation:
		return "validation"
	case ErrAuthentication:
		return "authentication"
	case ErrAuthorization:
		return "authorization"
	case ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// ServiceError is the error type returned by every service operation.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Field   string // offending input field, validation only
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func validationError(field, message string) error {
	return &ServiceError{Code: ErrValidation, Field: field, Message: message}
}

func notFoundError(message string) error {
	return &ServiceError{Code: ErrNotFound, Message: message}
}

func forbiddenError(message string) error {
	return &ServiceError{Code: ErrAuthorization, Message: message}
}

// ErrLoginRequired is returned when an anonymous caller attempts a write.
var ErrLoginRequired error = &ServiceError{Code: ErrAuthentication, Message: "login required"}

func internalError(message string, err error) error {
	return &ServiceError{Code: ErrInternal, Message: message, Err: err}
}

// CodeOf extracts the ErrorCode of err; anything that is not a ServiceError is internal.
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
