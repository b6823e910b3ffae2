// Package backoff re-invokes an operation on transient failure with bounded
// exponential delay. The wrapper is transparent to the operation's own
// transactional guarantees: it re-runs the whole operation, so it must only
// wrap operations that are safe to repeat.
package backoff

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultInitialDelay doubles per attempt up to DefaultMaxDelay.
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 8 * time.Second
	DefaultMaxAttempts  = 8

	// CreateMaxAttempts caps retries of single-record creation, which races
	// against duplicate-key detection and needs a shorter budget.
	CreateMaxAttempts = 6
)

// Policy controls retry behaviour. The zero value is not usable; construct
// with NewPolicy and override fields as needed.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int

	// Retryable decides whether an error is worth another attempt. A nil
	// predicate retries everything.
	Retryable func(error) bool

	logger *slog.Logger
}

func NewPolicy(logger *slog.Logger) Policy {
	return Policy{
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxAttempts:  DefaultMaxAttempts,
		logger:       logger,
	}
}

// Delay computes the exponential delay before the given attempt (1-based for
// the first retry). The result is capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		return p.MaxDelay
	}
	return delay
}

// Do runs op until it succeeds, exhausts the attempt cap, or hits a
// non-retryable error. The last error propagates unchanged so callers can
// classify it. Waits respect context cancellation.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if p.logger != nil {
			p.logger.Error("backoff attempt failed",
				"operation", name,
				"attempt", attempt,
				"max_attempts", p.MaxAttempts,
				"error", lastErr.Error(),
			)
		}
		if attempt == p.MaxAttempts {
			break
		}
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
