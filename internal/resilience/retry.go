// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Maximum number of retry attempts
	InitialInterval time.Duration                // Initial retry interval
	MaxInterval     time.Duration                // Maximum retry interval
	Multiplier      float64                      // Exponential backoff multiplier
	MaxElapsedTime  time.Duration                // Zero means bounded only by ctx
	Jitter          bool                         // Add up to 25% random jitter
	OnRetry         func(attempt int, err error) // Optional callback invoked before each retry
}

// DefaultRetryConfig suits a single interactive request made under a short
// overall deadline.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// backoff returns the delay before attempt n (n >= 1)
func (c RetryConfig) backoff(attempt int, lastErr error) time.Duration {
	delay := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
	}
	if c.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	d := time.Duration(delay)
	if hint, ok := RetryAfterHint(lastErr); ok && hint > d {
		d = hint
	}
	if c.MaxInterval > 0 {
		d = min(d, c.MaxInterval)
	}
	return d
}

// RetryWithBackoff executes an operation with exponential backoff. Errors that
// ClassifyError marks non-retryable are returned immediately.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := config.backoff(attempt, lastErr)
			if config.MaxElapsedTime > 0 && time.Since(start)+delay > config.MaxElapsedTime {
				return lastErr
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return lastErr
}

// RetryWithCircuitBreaker combines retry logic with circuit breaker protection.
// An open circuit is not retryable, so the loop ends as soon as it trips.
func RetryWithCircuitBreaker(ctx context.Context, retryConfig RetryConfig, cb *CircuitBreaker, operation RetryableOperation) error {
	return RetryWithBackoff(ctx, retryConfig, func(ctx context.Context) error {
		return cb.Execute(ctx, operation)
	})
}

// RetryableFunc is a convenience type for retryable functions that return a value.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithResult executes a function that returns a result and error with retry logic.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, cb *CircuitBreaker, fn RetryableFunc[T]) (T, error) {
	var result T
	op := func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	}
	var err error
	if cb != nil {
		err = RetryWithCircuitBreaker(ctx, config, cb, op)
	} else {
		err = RetryWithBackoff(ctx, config, op)
	}
	return result, err
}
