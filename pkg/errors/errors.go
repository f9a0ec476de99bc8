// Package errors provides custom error types for the reconify system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the reconify system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrPrecondition indicates a workflow step was invoked out of order
	ErrPrecondition = errors.New("precondition failed")

	// ErrParse indicates an uploaded document could not be parsed
	ErrParse = errors.New("parse failed")

	// ErrPersistence indicates the storage collaborator was unavailable;
	// the operation may be retried
	ErrPersistence = errors.New("persistence failed")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string // e.g. "panel", "sot", "run"
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure. Validation errors are
// rejected synchronously and never mutate state.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError represents a malformed upload. Parse failures are recorded in
// the upload history as failed entries and also surfaced to the caller.
type ParseError struct {
	Format  string // e.g. "csv"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("failed to parse %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// PreconditionError represents a state-machine step invoked out of order.
// The run's status is left unchanged.
type PreconditionError struct {
	Panel     string
	Operation string
	Status    string // current workflow status
	Expected  string // status the operation requires
}

// Error implements the error interface
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s panel %q: status is %s, requires %s",
		e.Operation, e.Panel, e.Status, e.Expected)
}

// Is implements errors.Is support
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NewPreconditionError creates a new PreconditionError
func NewPreconditionError(panel, operation, status, expected string) *PreconditionError {
	return &PreconditionError{Panel: panel, Operation: operation, Status: status, Expected: expected}
}

// PersistenceError represents a storage failure. These are retryable: no
// partial writes are left behind.
type PersistenceError struct {
	Operation string // e.g. "save", "load", "delete"
	Resource  string
	Err       error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Resource, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(operation, resource string, err error) *PersistenceError {
	return &PersistenceError{Operation: operation, Resource: resource, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// IOError represents a file system operation error
type IOError struct {
	Operation string // e.g. "read", "write", "open"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s file %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPreconditionError checks if an error is a precondition error
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsPersistenceError checks if an error is a retryable storage error
func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// Wrapping helpers

// WrapValidation wraps an error as a validation error for a field
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapParse wraps an error as a parse error
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapPersistence wraps an error as a persistence error
func WrapPersistence(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Operation: operation, Resource: resource, Err: err}
}

// WrapIO wraps an error as an IO error
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}
