package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartfinance/internal/amqp"
	"smartfinance/internal/backend"
	"smartfinance/internal/cache"
	"smartfinance/internal/config"
	apphttp "smartfinance/internal/http"
	applog "smartfinance/internal/log"
	"smartfinance/internal/services"
	"smartfinance/internal/snapshots"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
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

	if result.Cache != nil {
		cacheManager := cache.NewManager(logger)
		cacheManager.Register(result.Cache)
		cacheManager.StartCleanup(5 * time.Minute)
		defer cacheManager.Stop()
	}

	opts := []services.Option{services.WithCapabilities(cfg.Capabilities())}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err.Error())
		} else {
			defer client.Close()
			opts = append(opts, services.WithNotifier(client))
			logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - ledger changes will not be announced")
	}

	repo := snapshots.New(result.Store, logger)
	ledger := services.NewLedger(ctx, repo, logger, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		Logger:    logger,
		Ping:      result.Ping,
		LastSaved: result.UpdatedAt,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting smartfinance server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"plan", ledger.Capabilities().Plan())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
