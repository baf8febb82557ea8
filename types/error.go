package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Pipeline error codes
const (
	ErrTranslation      ErrorCode = "TRANSLATION_ERROR"
	ErrUnsupportedType  ErrorCode = "UNSUPPORTED_TYPE"
	ErrCompile          ErrorCode = "COMPILE_ERROR"
	ErrArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"
	ErrGeneration       ErrorCode = "GENERATION_ERROR"
	ErrEmptyOutput      ErrorCode = "EMPTY_OUTPUT"
	ErrParseValidation  ErrorCode = "PARSE_VALIDATION_ERROR"
)

// Ambient error codes
const (
	ErrConfig    ErrorCode = "CONFIG_ERROR"
	ErrCache     ErrorCode = "CACHE_ERROR"
	ErrHistory   ErrorCode = "HISTORY_ERROR"
	ErrTokenizer ErrorCode = "TOKENIZER_ERROR"
	ErrInternal  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("[%s] %s at %s: %v", e.Code, e.Message, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("[%s] %s at %s", e.Code, e.Message, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithPath sets the schema path the error refers to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// NewTranslationError creates a non-retryable translation failure.
func NewTranslationError(message string) *Error {
	return NewError(ErrTranslation, message)
}

// NewUnsupportedTypeError creates a translation failure for a node kind
// with no mapping rule.
func NewUnsupportedTypeError(kind string) *Error {
	return NewError(ErrUnsupportedType, fmt.Sprintf("no translation rule for schema kind %q", kind))
}

// NewCompileError creates a non-retryable compiler invocation failure.
func NewCompileError(message string) *Error {
	return NewError(ErrCompile, message)
}

// NewArtifactNotFoundError creates a failure for a workspace with no
// recognized compiled artifact.
func NewArtifactNotFoundError(dir string) *Error {
	return NewError(ErrArtifactNotFound, fmt.Sprintf("no compiled parser artifact found under %s", dir))
}

// NewGenerationError creates a retryable text-generation failure.
func NewGenerationError(message string) *Error {
	return NewError(ErrGeneration, message).WithRetryable(true)
}

// NewEmptyOutputError creates a non-retryable failure for a generation
// round-trip that succeeded but produced no usable text.
func NewEmptyOutputError() *Error {
	return NewError(ErrEmptyOutput, "generation returned no usable text")
}

// NewParseValidationError creates a non-retryable parser rejection.
func NewParseValidationError(message string) *Error {
	return NewError(ErrParseValidation, message)
}

// IsRetryable checks if an error (anywhere in its chain) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether the error chain carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
