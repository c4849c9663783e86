package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeColumnNotFound    ErrorType = "COLUMN_NOT_FOUND"
	ErrTypeUnmappedCategory  ErrorType = "UNMAPPED_CATEGORY"
	ErrTypeArtifactCorrupted ErrorType = "ARTIFACT_CORRUPTED"
	ErrTypeParsing           ErrorType = "PARSING"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeValidation        ErrorType = "VALIDATION"
	ErrTypeNotFound          ErrorType = "NOT_FOUND"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// Helper functions for common error types

// NewColumnNotFoundError reports a column that a stage required but the
// dataset does not contain.
func NewColumnNotFoundError(column string) *AppError {
	return NewAppError(ErrTypeColumnNotFound,
		fmt.Sprintf("column %q not found", column), nil).
		WithContext("column", column)
}

// NewUnmappedCategoryError reports a category value with no code in the
// fitted mapping and no sentinel to fall back to.
func NewUnmappedCategoryError(column, value string) *AppError {
	return NewAppError(ErrTypeUnmappedCategory,
		fmt.Sprintf("column %q: category %q has no mapped code and the mapping has no sentinel", column, value), nil).
		WithContext("column", column).
		WithContext("value", value)
}

// NewArtifactCorruptedError reports an artifact whose stored checksum does
// not match its tables.
func NewArtifactCorruptedError(id string, cause error) *AppError {
	return NewAppError(ErrTypeArtifactCorrupted,
		fmt.Sprintf("artifact %s failed integrity check", id), cause).
		WithContext("artifact_id", id)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
