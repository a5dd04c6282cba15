package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuehengyu/Lunara/internal/engine"
)

// Runner is the cooperative timer driver: it re-evaluates the full
// event set on a fixed period. Cancelling the context stops scheduling
// further ticks; a tick already in flight completes, which is safe
// because every pass is idempotent and forward-only.
type Runner struct {
	evaluator *engine.Evaluator
	interval  time.Duration
	logger    *slog.Logger
}

func NewRunner(evaluator *engine.Evaluator, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		evaluator: evaluator,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins the tick loop. It runs until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping")
			return
		case <-ticker.C:
			if _, err := r.evaluator.RunInstant(ctx); err != nil {
				// Nothing computed this tick; the next one retries.
				r.logger.Error("instant pass failed", "error", err)
			}
		}
	}
}
