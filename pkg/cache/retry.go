package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrUnavailable is returned when a remote cache cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// Retries of transient failures. Variables so tests can shorten them.
var (
	retryAttempts = 3
	retryDelay    = 100 * time.Millisecond
)

// transientError marks a failure that may succeed when retried.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// IsTransient reports whether err is a network failure worth retrying.
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// classify marks network failures as transient and unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return transientError{fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return err
}

// retry calls fn until it succeeds, fails permanently or runs out of
// attempts. The delay doubles after every transient failure.
func retry(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsTransient(err) || attempt == retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
