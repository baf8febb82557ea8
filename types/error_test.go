package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrCompile, "compiler exited 1").
		WithCause(root).
		WithPath("items.element")

	if GetErrorCode(err) != ErrCompile {
		t.Fatalf("expected code %s, got %s", ErrCompile, GetErrorCode(err))
	}
	if IsRetryable(err) {
		t.Fatalf("compile errors must not be retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_RetryabilityByKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err       error
		retryable bool
	}{
		{NewTranslationError("unwrap budget exceeded"), false},
		{NewUnsupportedTypeError("symbol"), false},
		{NewCompileError("spawn failed"), false},
		{NewArtifactNotFoundError("/tmp/ws/baml_client"), false},
		{NewGenerationError("connection reset"), true},
		{NewEmptyOutputError(), false},
		{NewParseValidationError("missing field id"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.retryable {
			t.Fatalf("%v: retryable = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}

func TestIsRetryable_WrappedChain(t *testing.T) {
	t.Parallel()

	inner := NewGenerationError("timeout")
	wrapped := fmt.Errorf("attempt 2: %w", inner)
	if !IsRetryable(wrapped) {
		t.Fatalf("retryable flag must survive fmt.Errorf wrapping")
	}
	if !IsErrorCode(wrapped, ErrGeneration) {
		t.Fatalf("code must survive fmt.Errorf wrapping")
	}
}

func TestGetErrorCode_ForeignError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for foreign error, got %s", code)
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("foreign errors are not retryable")
	}
}
