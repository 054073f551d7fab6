package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: stale_target, invalid_action, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// Derived errors (WithCause, WithMessage, ...) match their predefined parent.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Validation errors: the request is rejected before any driver call.
	ErrInvalidAction = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "invalid_action",
		Message:  "invalid action request",
	}
	ErrOutOfBounds = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "out_of_bounds",
		Message:  "coordinates outside the screen",
	}

	// Driver errors
	ErrDriverCall = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "driver_call_failed",
		Message:  "driver call failed",
	}
	ErrStaleTarget = &ExecutionError{
		Category: ErrCategoryStaleTarget,
		Code:     "stale_target",
		Message:  "element reference is stale",
	}
	ErrFallbacksExhausted = &ExecutionError{
		Category: ErrCategoryExhausted,
		Code:     "fallbacks_exhausted",
		Message:  "all fallback tiers failed",
	}

	// Persistence errors
	ErrPersistence = &ExecutionError{
		Category: ErrCategoryPersistence,
		Code:     "persistence_failed",
		Message:  "store write failed",
	}

	// Hashing errors
	ErrImageDecode = &ExecutionError{
		Category: ErrCategoryHashing,
		Code:     "image_decode_failed",
		Message:  "screenshot could not be decoded",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf returns the category of the first ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	for err != nil {
		if e, ok := err.(*ExecutionError); ok {
			return e.Category
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ErrCategoryNone
		}
		err = u.Unwrap()
	}
	return ErrCategoryNone
}
