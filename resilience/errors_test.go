package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string   { return "retryable" }
func (e retryableErr) Retryable() bool { return e.retry }

// clientTimeout mimics a transport timeout that reports itself transient.
type clientTimeout struct{}

func (clientTimeout) Error() string   { return "client timeout" }
func (clientTimeout) Retryable() bool { return true }
func (clientTimeout) Unwrap() error   { return context.DeadlineExceeded }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", fmt.Errorf("fetch: %w", context.DeadlineExceeded), false},
		{"circuit open", ErrCircuitOpen, false},
		{"rate limited", ErrRateLimitExceeded, false},
		{"self-declared retryable", fmt.Errorf("wrap: %w", retryableErr{retry: true}), true},
		{"self-declared permanent", retryableErr{retry: false}, false},
		{"self-declared timeout", fmt.Errorf("fetch: %w", clientTimeout{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
