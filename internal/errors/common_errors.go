package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingInput ErrorType = "MISSING_INPUT"
	ErrTypeSchema       ErrorType = "SCHEMA"
	ErrTypeParsing      ErrorType = "PARSING"
	ErrTypeConflict     ErrorType = "CONFLICT"
	ErrTypeCapacity     ErrorType = "CAPACITY"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeConfig       ErrorType = "CONFIG"
	ErrTypeInternal     ErrorType = "INTERNAL"
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

// TypeOf returns the ErrorType of the first AppError in err's chain.
// Errors that carry no classification are INTERNAL.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeInternal
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// Helper functions for common error types

// NewMissingInputError reports a required upload that was not supplied.
func NewMissingInputError(field string) *AppError {
	return NewAppError(ErrTypeMissingInput, fmt.Sprintf("required file %q is missing", field), nil).
		WithContext("field", field)
}

// NewSchemaError reports every required column absent from a table.
func NewSchemaError(table string, missing []string) *AppError {
	cols := append([]string(nil), missing...)
	return NewAppError(ErrTypeSchema,
		fmt.Sprintf("%s file is missing required columns: %s", table, strings.Join(cols, ", ")), nil).
		WithContext("table", table).
		WithContext("missing_columns", cols)
}

// MissingColumns returns the missing column list carried by a schema error.
func MissingColumns(err error) []string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Type != ErrTypeSchema {
		return nil
	}
	cols, _ := appErr.Context["missing_columns"].([]string)
	return cols
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewCellParseError reports an unparseable value with its location.
// row is the 1-based row number in the source file, header included.
func NewCellParseError(table string, row int, column, value string, cause error) *AppError {
	return NewAppError(ErrTypeParsing,
		fmt.Sprintf("%s file row %d: invalid %s value %q", table, row, column, value), cause).
		WithContext("table", table).
		WithContext("row", row).
		WithContext("column", column).
		WithContext("value", value)
}

// NewConflictError reports an item that maps to more than one series.
func NewConflictError(itemID, existing, incoming string) *AppError {
	return NewAppError(ErrTypeConflict,
		fmt.Sprintf("item %q maps to conflicting series %q and %q", itemID, existing, incoming), nil).
		WithContext("item_id", itemID).
		WithContext("series", []string{existing, incoming})
}

// NewCapacityError reports an input or derived size over its configured bound.
func NewCapacityError(what string, size, limit int64) *AppError {
	return NewAppError(ErrTypeCapacity,
		fmt.Sprintf("%s of %d exceeds the limit of %d", what, size, limit), nil).
		WithContext("size", size).
		WithContext("limit", limit)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewInternalAppError wraps an unexpected failure.
func NewInternalAppError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInternal, message, cause)
}
