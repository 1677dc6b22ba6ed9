package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without invoking the transport.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRetryExhausted is matched by every *RetryExhaustedError.
	ErrRetryExhausted = errors.New("resilience: retries exhausted")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("resilience: invalid configuration")
)

// RetryExhaustedError is returned when every attempt of a call failed.
// Last holds the failure of the final attempt.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("resilience: retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// StatusError records a response whose status code was retryable.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resilience: retryable status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
