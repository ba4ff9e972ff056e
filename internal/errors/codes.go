package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeTemplateNotFound indicates an unknown prompt template name.
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	// ErrCodeTransientModel indicates a retryable model failure (timeout, rate limit, 5xx).
	ErrCodeTransientModel ErrorCode = "TRANSIENT_MODEL_ERROR"
	// ErrCodeModelAuthOrRequest indicates a non-retryable model failure (auth, invalid request).
	ErrCodeModelAuthOrRequest ErrorCode = "MODEL_AUTH_OR_REQUEST"
	// ErrCodeEmptyCompletion indicates the model returned no assistant content.
	ErrCodeEmptyCompletion ErrorCode = "EMPTY_COMPLETION"
	// ErrCodeSchemaValidation indicates the model output failed batch-level validation.
	ErrCodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION"
	// ErrCodeNotFound indicates an unknown session, thread or message id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters (programmer error).
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeContextCanceled indicates the operation was canceled by the caller.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
)

// PipelineError is a structured error for scheduling pipeline operations.
// The code lets callers choose retry vs surface-to-user without inspecting
// internals.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending field for validation errors.
	Field string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	switch {
	case e.Field != "" && e.Cause != nil:
		return fmt.Sprintf("[%s] %s (field %q): %v", e.Code, e.Message, e.Field, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("[%s] %s (field %q)", e.Code, e.Message, e.Field)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller may retry the operation.
func (e *PipelineError) Retryable() bool {
	return e.Code == ErrCodeTransientModel
}

// Convenience constructors.

// TemplateNotFound creates a template not found error.
func TemplateNotFound(name string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeTemplateNotFound,
		Message: fmt.Sprintf("prompt template not found: %s", name),
	}
}

// TransientModel creates a transient model error, surfaced after retry exhaustion.
func TransientModel(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeTransientModel, Message: msg, Cause: cause}
}

// ModelAuthOrRequest creates a non-retryable model error.
func ModelAuthOrRequest(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeModelAuthOrRequest, Message: msg, Cause: cause}
}

// EmptyCompletion creates an empty completion error.
func EmptyCompletion() *PipelineError {
	return &PipelineError{Code: ErrCodeEmptyCompletion, Message: "model returned empty completion"}
}

// SchemaValidation creates a batch-level validation error naming the offending field.
func SchemaValidation(field, msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeSchemaValidation, Message: msg, Field: field}
}

// SchemaValidationCause creates a validation error wrapping a parse failure.
func SchemaValidationCause(field, msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeSchemaValidation, Message: msg, Field: field, Cause: cause}
}

// NotFound creates a not found error for an entity id.
func NotFound(entity, id string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ContextCanceled creates a canceled error.
func ContextCanceled(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error, or the default if it is
// not a PipelineError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return defaultCode
}
