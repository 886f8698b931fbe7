package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/engine"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/scheduler"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting fintrack-engine")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	dailyRunAt, err := config.ParseDailyRunAt(cfg.DailyRunAt)
	if err != nil {
		logger.Error("Invalid daily run time", "error", err, "value", cfg.DailyRunAt)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Without a broker the engine still sweeps; every notification is
	// reported skipped by the dispatcher.
	var amqpClient *notify.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - notifications will be skipped")
	}
	dispatcher := notify.NewAMQPDispatcher(amqpClient)

	timeouts := engine.Timeouts{Store: cfg.StoreTimeout, Notify: cfg.NotifyTimeout}
	materializer := engine.NewMaterializer(repo, timeouts)
	alertEvaluator := engine.NewBudgetAlertEvaluator(repo, repo, dispatcher, timeouts, cfg.AlertRealert)
	goalDetector := engine.NewGoalCompletionDetector(repo, repo, dispatcher, timeouts)
	reportBuilder := engine.NewReportBuilder(repo, dispatcher, timeouts)

	sched := scheduler.New(materializer, alertEvaluator, goalDetector, reportBuilder, scheduler.Options{
		DailyRunAt:     dailyRunAt,
		AlertInterval:  cfg.AlertCheckInterval,
		MonthlyReports: cfg.MonthlyReport,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Engine configured",
		"daily_run_at", cfg.DailyRunAt,
		"alert_check_interval", cfg.AlertCheckInterval,
		"monthly_report", cfg.MonthlyReport,
		"sqlite_db", cfg.SQLiteDBPath)

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("fintrack-engine stopped")
}
