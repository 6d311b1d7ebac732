package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := Newf(ErrOutOfOrder, "term %d after %d", 3, 7)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected errors.Is to match ErrOutOfOrder, got %v", err)
	}
	if got, want := err.Error(), "term appended out of order: term 3 after 7"; got != want {
		t.Fatalf("unexpected message.\nwant: %s\n got: %s", want, got)
	}

	wrapped := fmt.Errorf("writing block: %w", err)
	var appErr *AppError
	if !As(wrapped, &appErr) {
		t.Fatalf("expected As to find AppError in %v", wrapped)
	}
	if appErr.Message != "term 3 after 7" {
		t.Fatalf("unexpected AppError message %q", appErr.Message)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"corrupt", fmt.Errorf("open: %w", ErrCorruptIndex), true},
		{"decode", New(ErrDecode, "unterminated"), true},
		{"merge order", ErrMergeOrder, true},
		{"invalid input", ErrInvalidInput, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Fatalf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
