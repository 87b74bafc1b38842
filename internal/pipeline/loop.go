package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrTooManyFailures is returned by Loop when the consecutive failure budget
// is exhausted.
var ErrTooManyFailures = errors.New("too many consecutive failures")

// LoopOptions configures Loop.
type LoopOptions struct {
	// Interval is the pause after each iteration.
	Interval time.Duration
	// MaxConsecutiveFailures stops the loop once that many iterations fail in
	// a row. Zero means never stop on failures.
	MaxConsecutiveFailures int
	Logger                 *slog.Logger
}

// Loop calls fn, sleeps Interval, and repeats until ctx is done. Iterations
// never overlap. A cancelled ctx ends the loop with a nil error.
func Loop(ctx context.Context, opts LoopOptions, fn func(context.Context) error) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			logger.Error("iteration failed", "error", err, "consecutive_failures", failures)
			if opts.MaxConsecutiveFailures > 0 && failures >= opts.MaxConsecutiveFailures {
				return ErrTooManyFailures
			}
		} else {
			failures = 0
		}

		t := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("monitoring stopped")
			return nil
		case <-t.C:
		}
	}
}
