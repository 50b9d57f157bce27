// Package retrypkg provides a bounded exponential-backoff retry wrapper for
// operations whose failures split into retriable and fatal kinds.
package retrypkg

import (
	"context"
	"fmt"
	"time"
)

const maxShift = 62

// Sleeper delays between attempts. It returns early with the context error if
// the context is cancelled during the delay.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExhaustedError is returned when every attempt failed with a retriable error.
// It wraps the last underlying error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Controller retries an operation with exponential backoff.
type Controller struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       Sleeper
}

// New returns a Controller with the default context-aware sleeper.
func New(maxAttempts int, baseDelay time.Duration) Controller {
	return Controller{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Sleep:       SleepContext,
	}
}

// Delay returns the backoff before the attempt following the given one:
// BaseDelay * 2^(attempt-1). Attempts are counted from 1. The schedule is
// deterministic so tests can assert exact timings.
func (c Controller) Delay(attempt int) time.Duration {
	if c.BaseDelay <= 0 {
		return 0
	}

	shift := attempt - 1
	if shift < 0 {
		shift = 0
	} else if shift > maxShift {
		shift = maxShift
	}

	return c.BaseDelay << shift
}

// Do invokes op until it succeeds, fails fatally, or the attempt budget is
// spent. retriable classifies op's errors; a fatal error propagates
// unchanged on first occurrence. After MaxAttempts retriable failures Do
// returns an *ExhaustedError wrapping the last one.
func (c Controller) Do(ctx context.Context, op func(ctx context.Context) error, retriable func(error) bool) error {
	sleep := c.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = op(ctx)
		if err == nil {
			return nil
		}

		if !retriable(err) {
			return err
		}

		if attempt == c.MaxAttempts {
			break
		}

		if sleepErr := sleep(ctx, c.Delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}

	return &ExhaustedError{Attempts: c.MaxAttempts, Err: err}
}
