package retry

import (
	"context"
	"errors"
	"log"
	"time"
)

// PermanentError marks a failure retrying cannot fix (bad credentials,
// malformed request). Do returns the wrapped error immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do runs fn up to attempts times, doubling the delay between failures.
// Context cancellation interrupts the wait. The last error is returned
// unwrapped from any Permanent marker.
func Do(ctx context.Context, label string, attempts int, initialDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := initialDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		if attempt == attempts {
			break
		}
		log.Printf("%s attempt %d/%d failed, retrying in %s: %v", label, attempt, attempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
