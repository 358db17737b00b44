package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartfinance/internal/amqp"
	"smartfinance/internal/backend"
	"smartfinance/internal/config"
	applog "smartfinance/internal/log"
	"smartfinance/internal/services"
	"smartfinance/internal/snapshots"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentReminder
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("Starting reminder-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the reminder worker")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err.Error())
		}
	}()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ledger := services.NewLedger(ctx, snapshots.New(result.Store, logger), logger,
		services.WithCapabilities(cfg.Capabilities()))

	processor := services.NewReminderProcessor(ledger, client, services.ReminderConfig{
		Interval:   cfg.ReminderInterval,
		WindowDays: cfg.ReminderWindowDays,
	}, logger)

	logger.Info("Reminder processor configured",
		"interval", cfg.ReminderInterval,
		"window_days", cfg.ReminderWindowDays,
		"backend", cfg.DataBackend)

	if err := processor.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Another process changed the ledger: pick up its state and rescan.
		err := client.ConsumeLedgerChanged(gctx, func(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
			logger.DebugContext(ctx, "Ledger change received",
				"key", msg.Key, "operation", msg.Operation, applog.FieldCount, msg.Count)
			ledger.Reload(ctx)
			processor.Trigger()
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(shutdownCtx)
	})
	return g.Wait()
}
