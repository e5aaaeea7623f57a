package http

import (
	"errors"
	"fmt"
	"time"
)

// Outcome classifies how a fetch attempt sequence ended.
type Outcome int

const (
	// OutcomeSuccess means a response body was read in full.
	OutcomeSuccess Outcome = iota
	// OutcomeTransportFailure means every attempt ended without a usable response.
	OutcomeTransportFailure
	// OutcomeReadFailure means a response arrived but its body could not be read.
	OutcomeReadFailure
)

// String returns the log label of an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeReadFailure:
		return "read_failure"
	default:
		return "unknown"
	}
}

// Sentinel errors for HTTP operations.
var (
	// ErrSessionBootstrap indicates the anonymous session could not be set up.
	// The crawler cannot proceed without one.
	ErrSessionBootstrap = errors.New("http: session bootstrap failed")
	// ErrTransport indicates all attempts failed before a response was obtained.
	ErrTransport = errors.New("http: transport failure")
	// ErrRead indicates a response was obtained but its body could not be read.
	ErrRead = errors.New("http: response read failure")
)

// FetchError describes a failed attempt sequence.
// errors.Is matches ErrTransport or ErrRead depending on Outcome.
type FetchError struct {
	Outcome  Outcome
	URL      string
	Attempts int
	Err      error
}

// Error returns a string representation of the fetch error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("http: %s after %d attempt(s) for %s: %v", e.Outcome, e.Attempts, e.URL, e.Err)
}

// Unwrap returns the last underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this outcome.
func (e *FetchError) Is(target error) bool {
	switch e.Outcome {
	case OutcomeTransportFailure:
		return target == ErrTransport
	case OutcomeReadFailure:
		return target == ErrRead
	}
	return false
}

// StatusError is a non-2xx response. It counts as a failed attempt.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

// Error returns a string representation of the status error.
func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("http error: status %d, retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// IsRateLimited reports whether the status asks the client to slow down.
func (e *StatusError) IsRateLimited() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}
