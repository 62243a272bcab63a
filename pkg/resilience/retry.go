// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/dirigent-ai/dirigent/pkg/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (must be >= 1).
	MaxAttempts int

	// InitialDelay is the initial backoff delay.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff delay.
	MaxDelay time.Duration

	// Multiplier for exponential backoff (default 2.0).
	Multiplier float64

	// IsRecoverable determines if an error should be retried.
	// If nil, all errors are considered recoverable.
	IsRecoverable func(error) bool

	// Jitter adds randomness to backoff; 0.1 means ±10%.
	Jitter float64
}

// DefaultRetryConfig returns a sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: isRecoverableDefault,
	}
}

// Do executes fn with retry logic, returning the last error if all attempts fail.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = isRecoverableDefault
	}
	if rc.Multiplier <= 0 {
		rc.Multiplier = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.New(errors.CodeTimeout, "retry aborted by context", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !rc.IsRecoverable(lastErr) {
			return lastErr
		}
		if attempt == rc.MaxAttempts {
			break
		}

		delay := rc.backoff(attempt)
		select {
		case <-ctx.Done():
			return errors.New(errors.CodeTimeout, "retry aborted by context", ctx.Err())
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(attempt-1))
	if rc.MaxDelay > 0 && delay > float64(rc.MaxDelay) {
		delay = float64(rc.MaxDelay)
	}
	if rc.Jitter > 0 {
		delta := delay * rc.Jitter
		delay = delay - delta + rand.Float64()*2*delta
	}
	return time.Duration(delay)
}

// isRecoverableDefault retries typed errors marked recoverable and any
// untyped error.
func isRecoverableDefault(err error) bool {
	if de, ok := err.(*errors.DirigentError); ok {
		return de.Recoverable
	}
	return true
}
