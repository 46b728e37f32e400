package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

const (
	// DefaultMaxAttempts is the default number of polls for the session file.
	DefaultMaxAttempts = 60

	// DefaultInterval is the default delay between polls.
	DefaultInterval = time.Second
)

// DescriptorReader is the subset of Store the Waiter polls.
type DescriptorReader interface {
	Exists(path string) bool
	Read(path string) (*Descriptor, error)
}

// Waiter polls for a session descriptor with a bounded attempt budget.
type Waiter struct {
	log         *slog.Logger
	reader      DescriptorReader
	maxAttempts int
	interval    time.Duration
}

// NewWaiter creates a waiter. Non-positive values select the defaults.
func NewWaiter(log *slog.Logger, reader DescriptorReader, maxAttempts int, interval time.Duration) *Waiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Waiter{
		log:         log.With("component", "session_waiter"),
		reader:      reader,
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

// Wait polls path until a descriptor can be read, the attempt budget is
// exhausted or ctx is cancelled.
//
// The descriptor status is not interpreted. A file that exists but cannot be
// read or parsed counts as not ready yet; the last such failure is reported
// through TimeoutError.LastErr.
func (w *Waiter) Wait(ctx context.Context, path string) (*Descriptor, error) {
	w.log.Debug("Waiting for session file", "path", path, "max_attempts", w.maxAttempts, "interval", w.interval)

	var (
		lastErr error
		timer   *time.Timer
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if w.reader.Exists(path) {
			d, err := w.reader.Read(path)

			// A result that lands after cancellation is discarded.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			if err == nil {
				w.log.Debug("Session file found", "path", path, "attempt", attempt, "status", d.Status)

				return d, nil
			}

			w.log.Debug("Session file not readable yet", "path", path, "attempt", attempt, "error", err)
			lastErr = err
		}

		if attempt == w.maxAttempts {
			break
		}

		if timer == nil {
			timer = time.NewTimer(w.interval)
		} else {
			timer.Reset(w.interval)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	w.log.Warn("Timed out waiting for session file", "path", path, "attempts", w.maxAttempts)

	return nil, &errors.TimeoutError{
		Path:     path,
		Attempts: w.maxAttempts,
		Interval: w.interval,
		LastErr:  lastErr,
	}
}
