// Package errors provides custom error types for the aidsync import core.
// These errors enable programmatic error checking across the import pipeline:
// parse failures stay localized to one candidate, validation failures to one
// field, and write-time conflicts to one activity.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the import core
var (
	// ErrParse indicates malformed XML or an unparseable activity
	ErrParse = errors.New("parse failed")

	// ErrValidation indicates a code or format check failure on one field
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a uniqueness violation at write time
	ErrConflict = errors.New("identifier conflict")

	// ErrStore indicates a transient store failure
	ErrStore = errors.New("store unavailable")

	// ErrNotFound indicates that a requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ParseError represents a failure to parse a document or one activity in it.
// Index is the zero-based activity position, or -1 for document-level failures.
type ParseError struct {
	Index   int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	where := "document"
	if e.Index >= 0 {
		where = fmt.Sprintf("activity %d", e.Index)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", where, e.Message, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Message)
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(index int, message string, err error) *ParseError {
	return &ParseError{Index: index, Message: message, Err: err}
}

// ValidationError represents a validation failure on a single field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s with value %v: %s", e.Field, e.Value, e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConflictError represents an identifier uniqueness violation at write time.
type ConflictError struct {
	Identifier string
	Err        error
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("activity %s already exists: %v", e.Identifier, e.Err)
	}
	return fmt.Sprintf("activity %s already exists", e.Identifier)
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Unwrap returns the underlying error
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewConflictError creates a new ConflictError
func NewConflictError(identifier string, err error) *ConflictError {
	return &ConflictError{Identifier: identifier, Err: err}
}

// StoreError represents a store-level failure during a read or write.
// Transient reports whether retrying the one affected activity may help.
type StoreError struct {
	Operation string
	Table     string
	Transient bool
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s on %s: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Operation, e.Err)
}

// Is implements errors.Is support
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(operation, table string, err error) *StoreError {
	return &StoreError{Operation: operation, Table: table, Err: err}
}

// NotFoundError represents an error when a stored record is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Wrap helpers for common error patterns

// WrapParse wraps an error as a ParseError for one activity
func WrapParse(index int, message string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(index, message, err)
}

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(operation, table, err)
}
