// Package retry provides exponential backoff retry logic with jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// Jitter is the upper bound of a uniform random delay added to every backoff.
	Jitter time.Duration
}

// DefaultConfig returns the 2^attempt + jitter schedule used for Data API calls:
// 1s, 2s, 4s plus up to one second of jitter, three attempts in total.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         1 * time.Second,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// Sentinel errors that are permanent.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
)

// IsRetryable is a default error classifier that checks for common retryable errors.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) {
		return false
	}
	return true
}

// Hook is called after every failed attempt that will be retried.
type Hook func(attempt int, err error, wait time.Duration)

// Do executes fn until it succeeds, the classifier rejects the error, or
// cfg.MaxAttempts is reached. Exhaustion is reported as a *RetryableError.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	return DoWithHook(ctx, cfg, classifier, nil, fn)
}

// DoWithHook is Do with a callback invoked before each backoff sleep.
func DoWithHook(ctx context.Context, cfg Config, classifier ErrorClassifier, hook Hook, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !classifier(err) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := backoff
		if cfg.MaxBackoff > 0 && sleep > cfg.MaxBackoff {
			sleep = cfg.MaxBackoff
		}
		sleep += jitter(cfg.Jitter)

		if hook != nil {
			hook(attempt, err, sleep)
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
	}

	return &RetryableError{Err: lastErr, Attempts: cfg.MaxAttempts}
}

// jitter returns a uniform random duration in [0, max).
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// RetryableError reports that every attempt failed with a retryable error.
type RetryableError struct {
	Err      error
	Attempts int
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
