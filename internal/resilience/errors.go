// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // connection resets, DNS failures
	ErrorTypePermanent                    // rejected credentials
	ErrorTypeTimeout                      // per-request timeouts
	ErrorTypeRateLimit                    // HTTP 429
	ErrorTypeServiceUnavailable           // HTTP 5xx
	ErrorTypeInvalidInput                 // HTTP 4xx other than auth and rate limit
	ErrorTypeCanceled                     // caller gave up
	ErrorTypeCircuitOpen
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeCanceled:
		return "Canceled"
	case ErrorTypeCircuitOpen:
		return "CircuitOpen"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Type.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// NewStatusError builds a StatusError from a response, reading Retry-After
// when it is given in seconds
func NewStatusError(resp *http.Response, body string) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(body)}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return se
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return &ClassifiedError{Original: err, Type: ErrorTypeCircuitOpen, Retryable: false}
	}

	// the caller's budget is spent; retrying cannot help
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Retryable: false}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(err, statusErr.StatusCode)
	}

	if isTimeoutError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout: %v", err),
			Retryable: true,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	return &ClassifiedError{Original: err, Type: ErrorTypeUnknown, Retryable: false}
}

func classifyStatus(err error, code int) *ClassifiedError {
	switch {
	case code == http.StatusTooManyRequests:
		return &ClassifiedError{Original: err, Type: ErrorTypeRateLimit, Retryable: true}
	case code == http.StatusRequestTimeout:
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Retryable: true}
	case code >= 500:
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Retryable: true}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent, Retryable: false}
	case code >= 400:
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput, Retryable: false}
	default:
		return &ClassifiedError{Original: err, Type: ErrorTypeUnknown, Retryable: false}
	}
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryAfterHint returns the server-requested wait for rate-limited responses
func RetryAfterHint(err error) (time.Duration, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter, true
	}
	return 0, false
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable reports whether an error should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
