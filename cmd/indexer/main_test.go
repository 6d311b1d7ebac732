package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"empty collection", apperrors.New(apperrors.ErrNoInput, "no blocks"), 1},
		{"corrupt intermediate", fmt.Errorf("merging: %w", apperrors.ErrCorruptIndex), 1},
		{"bad document", fmt.Errorf("indexing block 0: %w", apperrors.ErrInvalidInput), 2},
		{"interrupted", fmt.Errorf("indexing block 3: %w", context.Canceled), 130},
		{"disk error", errors.New("write index/main_index.postings.tmp: no space left on device"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
