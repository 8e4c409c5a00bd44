package errors

import (
	"testing"
)

func TestSentinelWrappingPreservesIs(t *testing.T) {
	err := Wrap(ErrEnvNotFound, "environment \"py310\"")
	if !Is(err, ErrEnvNotFound) {
		t.Error("wrapped sentinel should still match with Is()")
	}
	if Is(err, ErrInvalidSpec) {
		t.Error("wrapped sentinel should not match unrelated sentinel")
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", New("boom"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrEnvNotFound", Wrap(ErrEnvNotFound, "environment \"mac\""), true},
		{"wrapped ErrInterpreterNotFound", Wrap(ErrInterpreterNotFound, "python3.10"), true},
		{"ErrHookFailed", ErrHookFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.want {
				t.Errorf("IsNotFoundError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEnvNotFoundErrorCarriesHint(t *testing.T) {
	err := NewEnvNotFoundError("py311")
	if !Is(err, ErrEnvNotFound) {
		t.Fatal("expected ErrEnvNotFound identity")
	}
	hints := GetAllHints(err)
	if len(hints) == 0 {
		t.Error("expected a user-facing hint on env-not-found errors")
	}
}

func TestNewInvalidSpecError(t *testing.T) {
	err := NewInvalidSpecError("missing egg fragment in %q", "git+https://x@main")
	if !Is(err, ErrInvalidSpec) {
		t.Error("expected ErrInvalidSpec identity")
	}
}
