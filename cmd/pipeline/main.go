package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/meetscribe/insights/internal/asr"
	"github.com/meetscribe/insights/internal/config"
	"github.com/meetscribe/insights/internal/correction"
	"github.com/meetscribe/insights/internal/jobs"
	"github.com/meetscribe/insights/internal/observability"
	"github.com/meetscribe/insights/internal/openai"
	"github.com/meetscribe/insights/internal/repository"
	"github.com/meetscribe/insights/internal/service"
	"github.com/meetscribe/insights/internal/workers"
	"github.com/meetscribe/insights/pkg/database"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Configure slog with the log level from config
	slog.SetDefault(observability.NewLogger(cfg.LogLevel))

	// Initialize database connection
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize metrics if a listener address is configured
	var (
		pipelineMetrics observability.PipelineMetrics
		meterProvider   observability.MeterProviderShutdown
		metricsServer   *http.Server
	)
	if cfg.MetricsAddr != "" {
		provider, metricsHandler, metrics, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			slog.Error("Failed to initialize metrics", "error", err)
			os.Exit(1)
		}
		meterProvider = provider
		pipelineMetrics = metrics
		metricsServer = startMetricsServer(cfg.MetricsAddr, metricsHandler)
		slog.Info("Metrics enabled", "addr", cfg.MetricsAddr)
	} else {
		slog.Info("Metrics disabled (METRICS_ADDR not set)")
	}

	// Initialize repositories
	insightsRepo := repository.NewInsightsRepository(db)
	recordingsRepo := repository.NewRecordingsRepository(db)
	knowledgeRepo := repository.NewKnowledgeRepository(db)

	// Insight store with organization isolation; the pipeline uses its
	// internal (unguarded) surface.
	insightsService := service.NewInsightsService(insightsRepo, recordingsRepo)

	// Notification delivery
	notifier := service.NewNotificationManager(pipelineMetrics)
	defer notifier.Close()
	if cfg.NotificationWebhookURL != "" {
		webhookSender, err := service.NewWebhookNotificationSender(cfg.NotificationWebhookURL, cfg.NotificationWebhookSecret)
		if err != nil {
			slog.Error("Failed to initialize webhook notification sender", "error", err)
			os.Exit(1)
		}
		notifier.RegisterSender(webhookSender)
		slog.Info("Webhook notifications enabled")
	} else {
		slog.Info("Webhook notifications disabled (NOTIFICATION_WEBHOOK_URL not set)")
	}

	// Providers
	asrClient := asr.NewHostedClient(asr.HostedClientOptions{
		BaseURL: cfg.ASRBaseURL,
		APIKey:  cfg.ASRAPIKey,
		Timeout: cfg.ASRTimeout,
	})
	completionClient := openai.NewClient(cfg.OpenAIAPIKey,
		openai.WithModel(cfg.CompletionModel),
		openai.WithRequestsPerSecond(float64(cfg.CompletionRatePerSec)),
	)

	// The transcription service reads knowledge through a cache (vocabulary
	// hints tolerate staleness); the corrector reads the repository directly.
	cachedKnowledge, err := service.NewCachingKnowledgeSource(knowledgeRepo, cfg.KnowledgeCacheSize)
	if err != nil {
		slog.Error("Failed to initialize knowledge cache", "error", err)
		os.Exit(1)
	}

	corrector := correction.NewCorrector(knowledgeRepo, completionClient, insightsService, nil, pipelineMetrics)

	// River: the correction worker has no client dependency and registers up
	// front; the transcription worker needs the correction inserter (and so
	// the client), so it registers after NewClient but before Start.
	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewCorrectionWorker(corrector))

	riverClient, err := newRiverClient(db, cfg, riverWorkers)
	if err != nil {
		slog.Error("Failed to initialize River job queue", "error", err)
		os.Exit(1)
	}

	corrections := jobs.NewRetryingCorrectionInserter(
		jobs.NewRiverCorrectionInserter(riverClient, cfg.CorrectionMaxAttempts),
		jobs.RetryingCorrectionInserterConfig{},
	)

	transcriptionService := service.NewTranscriptionService(
		insightsService,
		recordingsRepo,
		cachedKnowledge,
		asrClient,
		corrections,
		notifier,
		pipelineMetrics,
		service.TranscriptionServiceConfig{
			ASRTimeout:    cfg.ASRTimeout,
			VocabularyMax: cfg.VocabularyMaxTerms,
		},
	)
	river.AddWorker(riverWorkers, workers.NewTranscriptionWorker(transcriptionService, cfg.ASRTimeout))

	if err := riverClient.Start(ctx); err != nil {
		slog.Error("Failed to start River job queue", "error", err)
		os.Exit(1)
	}
	slog.Info("Pipeline started",
		"transcription_workers", cfg.TranscriptionMaxWorkers,
		"correction_workers", cfg.CorrectionMaxWorkers,
	)

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stop River (waits for in-flight jobs to complete)
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River forced to shutdown", "error", err)
	}

	// 2. Stop the metrics listener and flush the meter provider
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}
	if meterProvider != nil {
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Meter provider shutdown failed", "error", err)
		}
	}

	slog.Info("Pipeline exited")
}

// newRiverClient creates the River client over the shared pgx pool. The
// per-queue MaxAttempts for corrections is set at insert time; the client
// default covers transcription jobs inserted by upstream services.
func newRiverClient(db *pgxpool.Pool, cfg *config.Config, riverWorkers *river.Workers) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.TranscriptionsQueueName: {MaxWorkers: cfg.TranscriptionMaxWorkers},
			jobs.CorrectionsQueueName:    {MaxWorkers: cfg.CorrectionMaxWorkers},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
		MaxAttempts:  cfg.TranscriptionMaxAttempts,
	})
}

// startMetricsServer serves /metrics on its own listener.
func startMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	return server
}
