// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState is the breaker position
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name string
	// FailureThreshold consecutive failures open the circuit
	FailureThreshold int
	// SuccessThreshold probe successes close it again
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a probe
	Timeout time.Duration
	// MaxRequests bounds concurrent probes while half-open
	MaxRequests   int
	IsFailure     func(error) bool
	OnStateChange func(name string, from, to CircuitBreakerState)
	// Now defaults to time.Now
	Now func() time.Time
}

// DefaultCircuitBreakerConfig trips after three consecutive retryable
// failures and probes again after a minute
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
		IsFailure:        countsAsFailure,
	}
}

// countsAsFailure only counts retryable errors. A rejected credential says
// nothing about the health of the endpoint.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Retryable
}

// CircuitBreaker stops calling an endpoint that keeps failing so a hook run
// falls back to the baseline verdict without waiting on timeouts
type CircuitBreaker struct {
	config CircuitBreakerConfig
	mu     sync.RWMutex

	state       CircuitBreakerState
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.IsFailure == nil {
		config.IsFailure = countsAsFailure
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 1
	}
	return &CircuitBreaker{config: config}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.config.Now()
	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if now.Sub(cb.lastFailure) < cb.config.Timeout {
			return cb.rejection(fmt.Sprintf("%s unavailable: circuit open after %d failures, last %v ago",
				cb.config.Name, cb.failures, now.Sub(cb.lastFailure).Round(time.Second)))
		}
		cb.transition(StateHalfOpen)
		cb.probes = 1
		return nil

	case StateHalfOpen:
		if cb.probes >= cb.config.MaxRequests {
			return cb.rejection(fmt.Sprintf("%s unavailable: circuit half-open with %d probe(s) in flight",
				cb.config.Name, cb.config.MaxRequests))
		}
		cb.probes++
		return nil
	}
	return fmt.Errorf("unknown circuit breaker state: %v", cb.state)
}

func (cb *CircuitBreaker) rejection(msg string) error {
	return &CircuitBreakerError{Name: cb.config.Name, State: cb.state, Message: msg}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.config.IsFailure(err) {
		cb.failures++
		cb.lastFailure = cb.config.Now()
		// a failed probe reopens immediately
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
			cb.probes = 0
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
			cb.failures, cb.successes, cb.probes = 0, 0, 0
		}
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns a snapshot of the counters
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		Name:            cb.config.Name,
		State:           cb.state,
		FailureCount:    cb.failures,
		SuccessCount:    cb.successes,
		RequestCount:    cb.probes,
		LastFailureTime: cb.lastFailure,
	}
}

// Reset closes the circuit and clears the counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(StateClosed)
	cb.failures, cb.successes, cb.probes = 0, 0, 0
	cb.lastFailure = time.Time{}
}

// CircuitBreakerStats holds circuit breaker statistics
type CircuitBreakerStats struct {
	Name            string              `json:"name"`
	State           CircuitBreakerState `json:"state"`
	FailureCount    int                 `json:"failure_count"`
	SuccessCount    int                 `json:"success_count"`
	RequestCount    int                 `json:"request_count"`
	LastFailureTime time.Time           `json:"last_failure_time"`
}

// CircuitBreakerError is returned instead of calling an unavailable endpoint
type CircuitBreakerError struct {
	Name    string
	State   CircuitBreakerState
	Message string
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
