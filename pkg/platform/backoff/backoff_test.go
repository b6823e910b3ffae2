package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	p := NewPolicy(nil)
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 4 * time.Millisecond
	p.MaxAttempts = 4
	return p
}

func TestDelayDoublesUntilCap(t *testing.T) {
	p := NewPolicy(nil)

	assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
	assert.Equal(t, 8*time.Second, p.Delay(5))
	assert.Equal(t, 8*time.Second, p.Delay(6), "delay stays at the cap")
	assert.Equal(t, 8*time.Second, p.Delay(40), "shift overflow still returns the cap")
}

func TestDoStopsAfterFirstSuccess(t *testing.T) {
	p := fastPolicy()

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	p := fastPolicy()

	calls := 0
	last := errors.New("still broken")
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return last
	})

	assert.Equal(t, p.MaxAttempts, calls)
	assert.Same(t, last, err, "last error propagates unchanged")
}

func TestDoDoesNotRetryNonRetryableErrors(t *testing.T) {
	p := fastPolicy()
	terminal := errors.New("ownership mismatch")
	p.Retryable = func(err error) bool { return !errors.Is(err, terminal) }

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return terminal
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, terminal, err)
}

func TestDoAbortsOnContextCancellation(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Minute
	p.MaxDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, "op", func(context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
