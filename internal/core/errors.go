package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks invalid user input; the proposed mutation is discarded.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a stale reference to a transaction, group or record.
	ErrNotFound = errors.New("resource not found")
	// ErrPersistence marks a failed read or write of the key-value store.
	ErrPersistence = errors.New("persistence error")
	// ErrFeatureUnavailable is returned for features outside the active plan.
	ErrFeatureUnavailable = errors.New("feature not available in current plan")
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
