// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failing(ctx context.Context) error { return NewTransientError("down", nil) }
func healthy(ctx context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []CircuitBreakerState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "reviewer",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
		MaxRequests:      1,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			transitions = append(transitions, to)
		},
	})

	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after one failure, got %v", cb.GetState())
	}
	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %v", cb.GetState())
	}

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("operation should not run while open")
	}
	if !IsCircuitBreakerError(err) {
		t.Errorf("expected circuit breaker error, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("unexpected transitions %v", transitions)
	}
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "reviewer", FailureThreshold: 1, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return NewPermanentError("bad key", nil)
		})
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected closed, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "reviewer",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
		Now:              func() time.Time { return now },
	})

	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %v", cb.GetState())
	}
	if err := cb.Execute(context.Background(), healthy); !IsCircuitBreakerError(err) {
		t.Fatalf("expected rejection before the timeout, got %v", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(context.Background(), healthy); err != nil {
		t.Fatalf("probe should run: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected closed after successful probe, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("reviewer"))
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %v", cb.GetState())
	}

	cb.Reset()
	stats := cb.GetStats()
	if stats.State != StateClosed || stats.FailureCount != 0 {
		t.Errorf("unexpected stats after reset: %+v", stats)
	}
}

func TestRetryWithCircuitBreaker_StopsWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "reviewer", FailureThreshold: 1, Timeout: time.Hour})
	calls := 0

	err := RetryWithCircuitBreaker(context.Background(), RetryConfig{
		MaxRetries:      5,
		InitialInterval: time.Millisecond,
		Multiplier:      1,
	}, cb, func(ctx context.Context) error {
		calls++
		return NewTransientError("down", nil)
	})

	if calls != 1 {
		t.Errorf("expected 1 call before the circuit opened, got %d", calls)
	}
	var cbErr *CircuitBreakerError
	if !errors.As(err, &cbErr) {
		t.Errorf("expected circuit breaker error, got %v", err)
	}
}
