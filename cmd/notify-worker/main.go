package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/config"
	applog "finledger/internal/log"
	"finledger/internal/storage"
)

// notify-worker consumes alert notification envelopes and delivers the
// full alert to downstream channels. Delivery is currently a structured
// log line; swapping in email or push means replacing deliver().
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Component: applog.ComponentAMQP})
	applog.SetDefault(logger)

	logger.Info("Starting notify-worker")

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for notify-worker")
		os.Exit(1)
	}

	// Initialize SQLite repository (read side: fetch full alerts)
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	handler := func(msg *amqp.AlertMessage) error {
		hctx, hcancel := context.WithTimeout(ctx, 10*time.Second)
		defer hcancel()

		alert, err := repo.GetAlert(hctx, msg.ID, msg.Owner)
		if err != nil {
			return fmt.Errorf("fetch alert %d: %w", msg.ID, err)
		}
		deliver(hctx, alert.Owner, alert.Title, alert.Message, string(alert.Severity))
		return nil
	}

	logger.Info("Consuming alert notifications", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeAlerts(ctx, handler); err != nil && ctx.Err() == nil {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Notify-worker shutdown complete")
}

func deliver(ctx context.Context, owner, title, message, severity string) {
	slog.InfoContext(ctx, "Alert delivered",
		"owner", owner,
		"title", title,
		"message", message,
		"severity", severity)
}
