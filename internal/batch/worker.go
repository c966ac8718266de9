package batch

import (
	"context"
	"time"

	"github.com/smallbiznis/invoiceflow/internal/clock"
	"go.uber.org/zap"
)

// Worker drives the processor once per calendar day from a polling loop.
// The injected clock decides what "today" is.
type Worker struct {
	processor *Processor
	clock     clock.Clock
	log       *zap.Logger
	cfg       Config

	lastRunDay string
}

func NewWorker(processor *Processor, clk clock.Clock, log *zap.Logger) *Worker {
	return &Worker{
		processor: processor,
		clock:     clk,
		log:       log.Named("batch.worker"),
		cfg:       processor.cfg,
	}
}

// RunForever polls until ctx is canceled, running the processor the first
// time it sees a new calendar day.
func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("batch run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce runs the processor when today's run has not happened yet.
func (w *Worker) RunOnce(ctx context.Context) error {
	today := w.clock.Now()
	day := today.Format("2006-01-02")
	if day == w.lastRunDay {
		return nil
	}

	if _, err := w.processor.Run(ctx, today); err != nil {
		return err
	}
	w.lastRunDay = day
	return nil
}
