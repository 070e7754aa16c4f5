// Package retry provides bounded retry with a pluggable backoff schedule.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the unit delay between attempts. The wait after the
	// n-th failed attempt is BaseDelay * n, so a run through all attempts
	// waits BaseDelay, 2*BaseDelay, ... for MaxAttempts-1 waits total.
	BaseDelay time.Duration
	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultConfig returns the defaults used for transcript fetching.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("retry: base delay must be non-negative, got %v", c.BaseDelay)
	}
	return nil
}

// Delay returns the wait applied after the given failed attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay * time.Duration(attempt)
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// IsRetryable is the default classifier: context errors are permanent,
// everything else is transient.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Observer is called after every attempt with the 1-based attempt number and
// the attempt's error (nil on success). It lets callers keep a full attempt
// history without threading that bookkeeping through fn.
type Observer func(attempt int, err error)

// ExhaustedError reports that every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do executes fn with bounded retry and linear backoff. The classifier
// decides whether an error is worth another attempt; a non-retryable error is
// returned immediately. After the final attempt the last error is wrapped in
// *ExhaustedError. The sleep between attempts respects ctx cancellation.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, onAttempt Observer, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if onAttempt != nil {
			onAttempt(attempt, err)
		}
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

		select {
		case <-time.After(cfg.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}
