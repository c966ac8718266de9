package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/batch"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/config"
	"github.com/smallbiznis/invoiceflow/internal/customer"
	customerrepository "github.com/smallbiznis/invoiceflow/internal/customer/repository"
	"github.com/smallbiznis/invoiceflow/internal/events"
	"github.com/smallbiznis/invoiceflow/internal/invoice"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/invoiceflow/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/invoiceflow/internal/invoice/service"
	"github.com/smallbiznis/invoiceflow/internal/logger"
	"github.com/smallbiznis/invoiceflow/internal/migration"
	"github.com/smallbiznis/invoiceflow/internal/notification"
	notificationservice "github.com/smallbiznis/invoiceflow/internal/notification/service"
	"github.com/smallbiznis/invoiceflow/internal/seed"
	"github.com/smallbiznis/invoiceflow/internal/server"
	"github.com/smallbiznis/invoiceflow/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "invoiceflow",
	Short:   "Invoice lifecycle engine",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily batch worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			config.Module,
			logger.Module,
			fx.Provide(newSnowflakeNode),
			db.Module,
			clock.Module,
			events.Module,
			customer.Module,
			notification.Module,
			invoice.Module,
			batch.Module,
			fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.RunMigrations(sqlDB); err != nil {
					return err
				}
				if !cfg.IsProduction() && cfg.Bootstrap.SeedDemoData {
					return seed.EnsureDemoProfiles(conn)
				}
				return nil
			}),
			server.Module,
		)
		app.Run()
		return nil
	},
}

var batchDate string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one batch pass for a reference date and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		today := time.Now().UTC()
		if batchDate != "" {
			parsed, err := time.Parse("2006-01-02", batchDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", batchDate, err)
			}
			today = parsed
		}

		result, err := runBatchOnce(cmd.Context(), today)
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

// runBatchOnce wires the processor by hand so cron invocations skip the fx
// app lifecycle entirely.
func runBatchOnce(ctx context.Context, today time.Time) (batch.Result, error) {
	cfg, err := config.Load()
	if err != nil {
		return batch.Result{}, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return batch.Result{}, err
	}
	defer func() { _ = log.Sync() }()

	conn, err := db.Open(cfg, log)
	if err != nil {
		return batch.Result{}, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return batch.Result{}, err
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		return batch.Result{}, err
	}

	node, err := newSnowflakeNode()
	if err != nil {
		return batch.Result{}, err
	}
	clk := clock.SystemClock{}
	outbox := events.NewOutbox(conn, node, clk)
	invoiceRepo := invoicerepository.NewRepository(invoicerepository.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
	})
	customerRepo := customerrepository.NewRepository(customerrepository.Params{
		DB: conn, Log: log,
	})
	emitter := notificationservice.NewEmitter(notificationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		Log:          log,
		Clock:        clk,
		Policy:       invoicedomain.PolicyFromName(cfg.TransitionPolicy),
		Repo:         invoiceRepo,
		CustomerRepo: customerRepo,
		Emitter:      emitter,
		Outbox:       outbox,
	})
	processor := batch.NewProcessor(batch.Params{
		Log:          log,
		Repo:         invoiceRepo,
		InvoiceSvc:   invoiceSvc,
		CustomerRepo: customerRepo,
		Emitter:      emitter,
		Outbox:       outbox,
		Config: batch.Config{
			MonthlyGenerationDay: cfg.Batch.MonthlyGenerationDay,
			UnpaidReminderDay:    cfg.Batch.UnpaidReminderDay,
			IssuedReminderDay:    cfg.Batch.IssuedReminderDay,
		},
	})
	return processor.Run(ctx, today)
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func main() {
	batchCmd.Flags().StringVar(&batchDate, "date", "", "reference date (YYYY-MM-DD), defaults to today")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(batchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
