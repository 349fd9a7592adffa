package storage

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds the startup wait for the networked engine.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration

	// Sleep pauses between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits up to 8 attempts, starting at 2s and growing by
// 1.5x up to 10s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  8,
		InitialDelay: 2 * time.Second,
		Multiplier:   1.5,
		MaxDelay:     10 * time.Second,
	}
}

// PingFunc opens a connection and closes it immediately.
type PingFunc func(ctx context.Context) error

// WaitResult is the outcome of WaitUntilReady.
type WaitResult struct {
	Ready    bool
	Attempts int
	LastErr  error
}

// WaitUntilReady retries ping with exponential backoff until the networked
// engine answers or the attempts run out. The embedded engine is always ready.
// Exhaustion is logged, never returned as an error.
func WaitUntilReady(ctx context.Context, engine Engine, ping PingFunc, policy RetryPolicy, logger *slog.Logger) WaitResult {
	if engine != Postgres {
		return WaitResult{Ready: true}
	}
	if logger == nil {
		logger = slog.Default()
	}
	policy = policy.withDefaults()

	var (
		delay   = policy.InitialDelay
		lastErr error
	)
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = ping(ctx)
		if lastErr == nil {
			logger.InfoContext(ctx, "Connected to database",
				"engine", engine,
				"attempt", attempt)
			return WaitResult{Ready: true, Attempts: attempt}
		}

		logger.WarnContext(ctx, "Database not ready",
			"engine", engine,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"retry_in", delay.String(),
			"error", lastErr)

		if attempt == policy.MaxAttempts {
			break
		}
		if err := policy.Sleep(ctx, delay); err != nil {
			logger.WarnContext(ctx, "Stopped waiting for database", "engine", engine, "reason", err)
			return WaitResult{Attempts: attempt, LastErr: lastErr}
		}
		delay = nextDelay(delay, policy)
	}

	logger.ErrorContext(ctx, "Could not connect to database",
		"engine", engine,
		"attempts", policy.MaxAttempts,
		"error", lastErr)
	return WaitResult{Attempts: policy.MaxAttempts, LastErr: lastErr}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func nextDelay(d time.Duration, p RetryPolicy) time.Duration {
	next := time.Duration(float64(d) * p.Multiplier)
	if next > p.MaxDelay {
		return p.MaxDelay
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
