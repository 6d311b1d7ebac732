package redis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestIsNilError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil reply", redis.Nil, true},
		{"wrapped nil reply", fmt.Errorf("get search:x: %w", redis.Nil), true},
		{"other error", errors.New("connection refused"), false},
		{"no error", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNilError(tt.err); got != tt.want {
				t.Fatalf("IsNilError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
