package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType classifies a pipeline failure
type ErrorType string

const (
	ErrTypeInput      ErrorType = "INPUT"
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeDegenerate ErrorType = "DEGENERATE"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeSink       ErrorType = "SINK"
	ErrTypeReport     ErrorType = "REPORT"
	ErrTypeCancelled  ErrorType = "CANCELLED"
	ErrTypeInternal   ErrorType = "INTERNAL"
)

// Sentinel errors for fatal, run-aborting conditions
var (
	ErrInputNotFound  = stderrors.New("input file not found")
	ErrMissingColumns = stderrors.New("required columns missing")
	ErrEmptyInput     = stderrors.New("input table is empty")
	ErrEmptyFeatures  = stderrors.New("feature matrix has no rows")
	ErrInvalidConfig  = stderrors.New("invalid configuration")
)

// AppError is a classified error raised by one pipeline step
type AppError struct {
	Type    ErrorType
	Step    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Step != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Type, e.Step)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
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

// New creates a classified error for a step
func New(errType ErrorType, step, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// SchemaError reports required columns absent from an input table
type SchemaError struct {
	Source  string
	Missing []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing columns [%s]", e.Source, strings.Join(e.Missing, ", "))
}

// Is matches ErrMissingColumns
func (e *SchemaError) Is(target error) bool {
	return target == ErrMissingColumns
}

// TypeOf returns the classification of err, or an empty type if err does
// not wrap an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsFatalInput reports whether err is one of the input conditions that abort
// a run before any processing.
func IsFatalInput(err error) bool {
	return stderrors.Is(err, ErrInputNotFound) ||
		stderrors.Is(err, ErrMissingColumns) ||
		stderrors.Is(err, ErrEmptyInput)
}
