package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"envelope/internal/amqp"
	"envelope/internal/config"
	"envelope/internal/engine"
	applog "envelope/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	logger.Info("Starting envelope")

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize AMQP client for diff notifications (optional)
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without diff notifications", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - diff files will be written without notifications")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(cfg, logger, amqpClient)
	if err := eng.Initialize(ctx); err != nil {
		logger.Error("Engine initialization failed", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer eng.Close()

	budget, err := eng.SelectBudgetToOpen(ctx)
	if err != nil {
		logger.Error("Failed to select budget", "error", err)
		os.Exit(1)
	}

	if _, err := eng.LoadBudget(ctx, budget.EntityID); err != nil {
		logger.Error("Failed to load budget", "error", err, "budget_id", budget.EntityID)
		os.Exit(1)
	}
	logger.Info("Budget open", "budget_id", budget.EntityID, "budget_name", budget.BudgetName)

	g, gctx := errgroup.WithContext(ctx)

	// Periodically re-project recurring transactions so upcoming occurrences
	// stay fresh while the process is long-lived.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ScheduleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, err := eng.PerformScheduledTransactionCalculations(gctx, budget.EntityID); err != nil {
					logger.Error("Scheduled transaction calculation failed", "error", err, "budget_id", budget.EntityID)
				}
			}
		}
	})

	// Handle shutdown signals
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Run loop error", "error", err)
		os.Exit(1)
	}

	logger.Info("Envelope stopped gracefully")
}
