// Package retry re-runs an operation with exponentially growing pauses.
// The stub uses it to bind its debugger listener while a previous
// instance still holds the port.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError stops the retry loop at once.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.  Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with [Permanent].
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff is an exponential retry policy.  The zero value retries
// forever starting at one second.
type Backoff struct {
	// InitialDelay is the pause after the first failure (default 1s).
	InitialDelay time.Duration
	// MaxDelay caps the pause (default 60s).
	MaxDelay time.Duration
	// Multiplier grows the pause after each failure (default 2).
	Multiplier float64
	// MaxAttempts bounds the number of calls, the first included.
	// Zero means no bound other than the context.
	MaxAttempts int
	// Jitter spreads each pause by ±25%.
	Jitter bool

	// Notify is told about every failure that will be retried.
	Notify func(attempt int, err error, wait time.Duration)
}

// DefaultBackoff returns the policy used when nothing else is given.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       true,
	}
}

// Do calls fn until it returns nil or a [Permanent] error, or until the
// attempt budget or ctx runs out.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay, maxDelay, multiplier := b.InitialDelay, b.MaxDelay, b.Multiplier
	if delay <= 0 {
		delay = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err):
			return errors.Unwrap(err)
		case b.MaxAttempts > 0 && attempt >= b.MaxAttempts:
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}
		if b.Notify != nil {
			b.Notify(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		if delay = time.Duration(float64(delay) * multiplier); delay > maxDelay {
			delay = maxDelay
		}
	}
}

// addJitter moves d by up to a quarter in either direction.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := rand.Float64()*2*quarter - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
