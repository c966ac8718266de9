package batch

import (
	"context"

	"github.com/smallbiznis/invoiceflow/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("batch",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			MonthlyGenerationDay: cfg.Batch.MonthlyGenerationDay,
			UnpaidReminderDay:    cfg.Batch.UnpaidReminderDay,
			IssuedReminderDay:    cfg.Batch.IssuedReminderDay,
		}.withDefaults()
	}),
	fx.Provide(NewProcessor),
	fx.Provide(NewWorker),
	fx.Invoke(func(lc fx.Lifecycle, worker *Worker) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go worker.RunForever(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
