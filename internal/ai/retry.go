package ai

import (
	"context"
	"errors"
	"time"

	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
)

// transientError marks a failure worth another attempt: network trouble,
// timeouts, a 503 from a warming service, or a body we could not parse.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retriable.
func IsTransient(err error) bool {
	var target *transientError
	return errors.As(err, &target)
}

// Policy is a bounded-retry policy: up to MaxAttempts attempts, where attempt
// n (0-indexed) sleeps min(2^n x BaseDelay, MaxDelay) before the next one.
// Exhaustion comes back as a ServiceUnavailableError naming the attempt count
// and wrapping the last underlying failure.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool

	// sleep is swapped out in tests so backoff runs without real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPolicy(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Retryable:   IsTransient,
	}
}

// Delay returns the backoff slept after the given 0-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails non-retriably, or the attempt budget is
// spent.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var last error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.Delay(attempt-1)); err != nil {
				return &domain.ServiceUnavailableError{Attempts: attempt, Last: last}
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !retryable(err) {
			return err
		}
	}

	return &domain.ServiceUnavailableError{Attempts: p.MaxAttempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
