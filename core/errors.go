package core

import "github.com/pkg/errors"

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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// PermissionError is returned when a principal lacks the role required by an operation.
type PermissionError struct {
	Required string
}

func NewPermissionError(required string) error {
	return &PermissionError{Required: required}
}

func (err PermissionError) Error() string {
	if err.Required == "" {
		return "permission denied"
	}
	return "permission denied: " + err.Required + " role required"
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
	return ok
}

// NotFoundError is returned when a referenced resource does not exist (or is not visible to the caller).
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// PersistenceError wraps a store failure that aborted a transaction. Nothing was written.
type PersistenceError struct {
	Err error
}

func NewPersistenceError(err error) error {
	return &PersistenceError{Err: err}
}

func (err PersistenceError) Error() string {
	if err.Err == nil {
		return "persistence error"
	}
	return "persistence error: " + err.Err.Error()
}

func (err PersistenceError) Cause() error { return err.Err }

// IsPersistenceError reports whether err is (or wraps) a *PersistenceError.
// errors.Cause would unwrap past it, so the chain is walked by hand.
func IsPersistenceError(err error) bool {
	for err != nil {
		if _, ok := err.(*PersistenceError); ok {
			return true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = cause.Cause()
	}
	return false
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
