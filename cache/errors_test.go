package cache

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	e := NewError(ErrCodeAlreadyExists, "cache \"orders\" already exists")
	want := "[ALREADY_EXISTS] cache \"orders\" already exists"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}

	root := errors.New("backend unavailable")
	wrapped := Errorf(ErrCodeIllegalState, "cache manager %q is closed", "m-1").WithCause(root)
	if wrapped.Cause != root {
		t.Fatalf("WithCause did not set cause")
	}
	if !errors.Is(wrapped, root) {
		t.Fatalf("errors.Is failed to unwrap cause")
	}
	if got := wrapped.Error(); got != fmt.Sprintf("[ILLEGAL_STATE] cache manager \"m-1\" is closed: %v", root) {
		t.Fatalf("unexpected formatted error: %q", got)
	}
}

func TestGetErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", NewError(ErrCodeNotSupported, "statistics"), ErrCodeNotSupported},
		{"wrapped", fmt.Errorf("create: %w", NewError(ErrCodeInvalidArgument, "empty name")), ErrCodeInvalidArgument},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Fatalf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeTypeMismatch, "key type mismatch")
	if !IsCode(err, ErrCodeTypeMismatch) {
		t.Fatalf("IsCode should match TYPE_MISMATCH")
	}
	if IsCode(err, ErrCodeIllegalState) {
		t.Fatalf("IsCode matched wrong code")
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !IsNotFound(fmt.Errorf("get: %w", ErrNotFound)) {
		t.Fatalf("wrapped ErrNotFound not detected")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatalf("unrelated error detected as miss")
	}
}
