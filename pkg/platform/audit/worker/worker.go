package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultInterval replaces a non-positive interval.
const DefaultInterval = 2 * time.Second

// Flusher relays one batch of pending audit events.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Worker drives a Flusher on an interval. A full batch triggers an immediate
// follow-up flush so a backlog drains without waiting for the ticker.
type Worker struct {
	flusher   Flusher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewWorker(flusher Flusher, interval time.Duration, batchSize int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{flusher: flusher, interval: interval, batchSize: batchSize, logger: logger}
}

// Run flushes until ctx is cancelled. Flush errors are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		n, err := w.flusher.Flush(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.WarnContext(ctx, "audit flush failed", "error", err)
			}
			return
		}
		if w.batchSize <= 0 || n < w.batchSize {
			return
		}
	}
}
