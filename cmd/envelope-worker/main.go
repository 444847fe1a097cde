package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"envelope/internal/amqp"
	"envelope/internal/config"
	"envelope/internal/diff"
	applog "envelope/internal/log"
)

// envelope-worker consumes diff notifications and validates the referenced
// diff files as they land in the shared folder. It is the receiving half of
// the sync pipeline for deployments that relay diffs through a broker
// instead of a cloud folder alone.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting envelope-worker")

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	handler := func(msg *amqp.DiffNotification) error {
		payload, err := diff.ReadDiffFile(msg.DiffFile)
		if err != nil {
			return err
		}
		logger.Info("Diff file received",
			"budget_id", msg.BudgetID,
			"diff_file", msg.DiffFile,
			"knowledge", msg.Knowledge,
			"transactions", len(payload.Transactions),
			"accounts", len(payload.Accounts),
			"monthly_budgets", len(payload.MonthlyBudgets))
		return nil
	}

	err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, handler)
	if err != nil && err != context.Canceled {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
