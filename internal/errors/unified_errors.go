// Package errors provides the single error type shared by the note store,
// the summarization adapter, the mutation cache and the HTTP layer.
//
// Every failure that crosses a component boundary is a *UnifiedError carrying
// one of five kinds. Callers classify with the Is* helpers and show
// UserMessage(err) to the person at the keyboard.
package errors

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// ERROR KINDS
// ============================================================================

// ErrorType is the kind of failure, used for rollback messaging and HTTP mapping.
type ErrorType string

const (
	// The requested note does not exist for this owner. Wrong owner and
	// missing note are deliberately indistinguishable.
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// No authenticated user, or the session is gone.
	ErrorTypePermission ErrorType = "PERMISSION"
	// The persistence boundary failed (transport, constraint, timeout).
	ErrorTypeStore ErrorType = "STORE"
	// The summarization boundary failed or returned unusable content.
	ErrorTypeSummarization ErrorType = "SUMMARIZATION"
	// The input was rejected before reaching any boundary.
	ErrorTypeValidation ErrorType = "VALIDATION"
)

// ============================================================================
// UNIFIED ERROR STRUCTURE
// ============================================================================

// UnifiedError is the error type raised by every component.
type UnifiedError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	Operation string `json:"operation,omitempty"`
	Resource  string `json:"resource,omitempty"`
	UserID    string `json:"userId,omitempty"`

	Retryable bool  `json:"retryable"`
	Cause     error `json:"-"`

	File string `json:"-"`
	Line int    `json:"-"`
}

// Error implements the error interface.
func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// String gives a multi-line representation for debug logging.
func (e *UnifiedError) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", e.Error())
	if e.Operation != "" {
		fmt.Fprintf(&b, "Operation: %s\n", e.Operation)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, "Resource: %s\n", e.Resource)
	}
	if e.UserID != "" {
		fmt.Fprintf(&b, "UserID: %s\n", e.UserID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	if e.File != "" && e.Line > 0 {
		fmt.Fprintf(&b, "Location: %s:%d\n", e.File, e.Line)
	}
	return b.String()
}

// ============================================================================
// ERROR BUILDER FOR FLUENT CONSTRUCTION
// ============================================================================

// ErrorBuilder provides a fluent interface for constructing UnifiedError instances.
type ErrorBuilder struct {
	error *UnifiedError
}

// NewError creates a new error builder with the specified kind and message.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(2)
	return &ErrorBuilder{
		error: &UnifiedError{
			Type:    errType,
			Code:    code,
			Message: message,
			File:    file,
			Line:    line,
		},
	}
}

// WithDetails adds additional details to the error.
func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.error.Details = details
	return b
}

// WithOperation specifies the operation that failed.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.error.Operation = operation
	return b
}

// WithResource specifies the resource being operated on.
func (b *ErrorBuilder) WithResource(resource string) *ErrorBuilder {
	b.error.Resource = resource
	return b
}

// WithUserID adds user context to the error.
func (b *ErrorBuilder) WithUserID(userID string) *ErrorBuilder {
	b.error.UserID = userID
	return b
}

// WithRetryable marks the error as retryable.
func (b *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	b.error.Retryable = retryable
	return b
}

// WithCause adds the underlying cause error.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.error.Cause = cause
	if cause != nil && b.error.Details == "" {
		b.error.Details = cause.Error()
	}
	return b
}

// Build returns the constructed UnifiedError.
func (b *ErrorBuilder) Build() *UnifiedError {
	return b.error
}

// ============================================================================
// CONVENIENCE CONSTRUCTORS
// ============================================================================

// NotFound creates a not-found error.
func NotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeNotFound, code, message)
}

// Permission creates a permission error.
func Permission(code, message string) *ErrorBuilder {
	return NewError(ErrorTypePermission, code, message)
}

// Store creates a persistence error. Store errors are retryable by default.
func Store(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeStore, code, message).WithRetryable(true)
}

// Summarization creates a summarization error.
func Summarization(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeSummarization, code, message).WithRetryable(true)
}

// Validation creates a validation error.
func Validation(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeValidation, code, message)
}

// ============================================================================
// ERROR CLASSIFICATION AND CHECKING
// ============================================================================

// Kind returns the error kind, or "" when err is not a UnifiedError.
func Kind(err error) ErrorType {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr.Type
	}
	return ""
}

// IsType checks if an error is of a specific kind.
func IsType(err error, errType ErrorType) bool {
	return err != nil && Kind(err) == errType
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsPermission checks if an error is a permission error.
func IsPermission(err error) bool {
	return IsType(err, ErrorTypePermission)
}

// IsStore checks if an error is a persistence error.
func IsStore(err error) bool {
	return IsType(err, ErrorTypeStore)
}

// IsSummarization checks if an error is a summarization error.
func IsSummarization(err error) bool {
	return IsType(err, ErrorTypeSummarization)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr.Retryable
	}
	return false
}

// ============================================================================
// ERROR WRAPPING
// ============================================================================

// Wrap annotates err with the failing operation. UnifiedErrors keep their
// kind; anything else becomes a Store error since untyped failures only come
// out of I/O.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}

	var existing *UnifiedError
	if errors.As(err, &existing) {
		return &UnifiedError{
			Type:      existing.Type,
			Code:      existing.Code,
			Message:   message,
			Details:   existing.Message,
			Operation: operation,
			Resource:  existing.Resource,
			UserID:    existing.UserID,
			Retryable: existing.Retryable,
			Cause:     err,
			File:      existing.File,
			Line:      existing.Line,
		}
	}

	if ctxErr := FromContext(err, operation); ctxErr != nil {
		return ctxErr
	}

	return Store(CodeStoreUnavailable, message).
		WithOperation(operation).
		WithCause(err).
		Build()
}

// FromContext maps context expiry and cancellation to a Store error.
// It returns nil when err is not a context error.
func FromContext(err error, operation string) *UnifiedError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Store(CodeTimeout, "the request timed out").
			WithOperation(operation).
			WithCause(err).
			Build()
	case errors.Is(err, context.Canceled):
		return Store(CodeCanceled, "the request was canceled").
			WithOperation(operation).
			WithCause(err).
			WithRetryable(false).
			Build()
	}
	return nil
}
