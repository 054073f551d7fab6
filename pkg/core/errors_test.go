package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrStaleTarget
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrDriverCall
	newErr := original.WithMessage("custom driver message")

	if newErr.Message != "custom driver message" {
		t.Errorf("Message = %q, want 'custom driver message'", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == "custom driver message" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"selector": "#button",
		"timeout":  5000,
	})

	if newErr.Details["selector"] != "#button" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["selector"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrInvalidAction, ErrCategoryValidation, "invalid_action"},
		{ErrOutOfBounds, ErrCategoryValidation, "out_of_bounds"},
		{ErrDriverCall, ErrCategoryDriver, "driver_call_failed"},
		{ErrStaleTarget, ErrCategoryStaleTarget, "stale_target"},
		{ErrFallbacksExhausted, ErrCategoryExhausted, "fallbacks_exhausted"},
		{ErrPersistence, ErrCategoryPersistence, "persistence_failed"},
		{ErrImageDecode, ErrCategoryHashing, "image_decode_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategoryDriver, "custom_error", "custom message")

	if err.Category != ErrCategoryDriver {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategoryDriver)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrPersistence.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
}

func TestExecutionError_IsMatchesDerivedErrors(t *testing.T) {
	derived := ErrStaleTarget.WithCause(errors.New("no such element")).WithMessage("tap target went away")

	if !errors.Is(derived, ErrStaleTarget) {
		t.Error("errors.Is() should match the predefined parent by code")
	}
	if errors.Is(derived, ErrDriverCall) {
		t.Error("errors.Is() should not match a different code")
	}
}

func TestExecutionError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("click: %w", ErrStaleTarget.WithCause(errors.New("gone")))

	if !errors.Is(err, ErrStaleTarget) {
		t.Error("errors.Is() should see through fmt.Errorf wrapping")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrCategoryNone},
		{"plain", errors.New("x"), ErrCategoryNone},
		{"direct", ErrOutOfBounds, ErrCategoryValidation},
		{"wrapped", fmt.Errorf("insert: %w", ErrPersistence.WithCause(errors.New("disk full"))), ErrCategoryPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %s, want %s", got, tt.want)
			}
		})
	}
}
