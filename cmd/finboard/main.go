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

	"finboard/internal/advisor"
	"finboard/internal/alerts"
	"finboard/internal/config"
	"finboard/internal/export"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/storage"
	"finboard/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	logger.Info("Starting finboard")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite repository
	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Optional AI advisor
	var adv apphttp.Advisor
	if cfg.AdvisorEnabled() {
		client, err := advisor.NewClient(cfg.AIBaseURL, cfg.AIModel, cfg.AITokens)
		if err != nil {
			logger.Error("Failed to initialize advisor", "error", err)
			os.Exit(1)
		}
		adv = client
		logger.Info("Advisor initialized", "model", cfg.AIModel, "tokens", len(cfg.AITokens))
	} else {
		logger.Info("Advisor disabled - no AI_TOKENS provided")
	}

	// Optional Sheets export
	var exporter apphttp.MetricsExporter
	if cfg.SheetsEnabled() {
		credentials := []byte(cfg.GoogleCredentialsJSON)
		if cfg.GoogleCredentialsFile != "" {
			credentials, err = os.ReadFile(cfg.GoogleCredentialsFile)
			if err != nil {
				logger.Error("Failed to read Google credentials file", "error", err, "path", cfg.GoogleCredentialsFile)
				os.Exit(1)
			}
		}
		sheets, err := export.NewSheetsExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, credentials)
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", "error", err)
			os.Exit(1)
		}
		exporter = sheets
		logger.Info("Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Optional AMQP alert publishing with the periodic warning scan
	var alertsClient *alerts.Client
	if cfg.AlertsEnabled() {
		alertsClient, err = alerts.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer alertsClient.Close()
		logger.Info("AMQP alerts initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP alerts disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, adv, exporter)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info("Starting finboard server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if alertsClient != nil {
		scanWorker := worker.NewScanWorker(repo, alertsClient, cfg.ScanInterval)
		g.Go(func() error {
			err := scanWorker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
