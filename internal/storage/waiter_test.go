package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func testPolicy(rec *sleepRecorder) RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = rec.sleep
	return p
}

func TestWaitUntilReady_SQLiteIsNoop(t *testing.T) {
	calls := 0
	ping := func(context.Context) error {
		calls++
		return errors.New("unreachable")
	}

	res := WaitUntilReady(context.Background(), SQLite, ping, DefaultRetryPolicy(), discardLogger())

	assert.True(t, res.Ready)
	assert.Zero(t, res.Attempts)
	assert.Zero(t, calls)
}

func TestWaitUntilReady_SucceedsAfterFailures(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	res := WaitUntilReady(context.Background(), Postgres, ping, testPolicy(rec), discardLogger())

	assert.True(t, res.Ready)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second, 4500 * time.Millisecond}, rec.delays)
}

func TestWaitUntilReady_GivesUp(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	ping := func(context.Context) error {
		calls++
		return errors.New("connection refused")
	}

	res := WaitUntilReady(context.Background(), Postgres, ping, testPolicy(rec), discardLogger())

	assert.False(t, res.Ready)
	assert.Equal(t, 8, res.Attempts)
	assert.Equal(t, 8, calls)
	require.Len(t, rec.delays, 7, "no sleep after the last attempt")
	for _, d := range rec.delays {
		assert.LessOrEqual(t, d, 10*time.Second)
	}
	assert.Equal(t, 10*time.Second, rec.delays[len(rec.delays)-1])
	assert.EqualError(t, res.LastErr, "connection refused")
}

func TestWaitUntilReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ping := func(context.Context) error {
		calls++
		return errors.New("connection refused")
	}
	policy := DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res := WaitUntilReady(ctx, Postgres, ping, policy, discardLogger())

	assert.False(t, res.Ready)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
