package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(viper.New())
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		return err
	}
	logger := cli.SetupLogger(cfg, os.Stdout, log.ComponentWorker)

	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		err := errors.New("AMQP_URL is required to consume ledger events")
		logger.Error("Cannot start worker", log.FieldError, err)
		return err
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	// The worker only reads, so it never publishes.
	ledger := services.NewLedgerService(repo, nil)
	defer ledger.Close()

	mirrorConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(context.Background(), mirrorConfig)
	if err != nil {
		logger.Error("Failed to initialize snapshot mirror", log.FieldError, err, "mirror", mirrorConfig.Type)
		return err
	}
	if mirrorConfig.Type == backend.MemoryMirror {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, snapshots kept in memory")
	}

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	budgets := cache.NewLRUCache[core.Budget](cfg.BudgetCacheSize, cfg.BudgetCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(budgets)

	w := worker.NewLedgerWorker(ledger, mirror, budgets, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := w.SyncSnapshot(ctx, true); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, w.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.RunSync(gctx, cfg.SyncInterval)
	})
	g.Go(func() error {
		return cacheManager.Run(gctx, cfg.BudgetCacheTTL)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
	}

	// Flush changes received since the last tick.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if syncErr := w.SyncSnapshot(flushCtx, false); syncErr != nil {
		logger.Error("Final sync failed", log.FieldError, syncErr)
	}

	if ctx.Err() != nil {
		<-done
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
	return err
}
