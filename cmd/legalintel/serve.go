package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/baznta/legal-intel-dashboard/internal/api"
	"github.com/baznta/legal-intel-dashboard/internal/config"
	"github.com/baznta/legal-intel-dashboard/internal/dedup"
	"github.com/baznta/legal-intel-dashboard/internal/hermes"
	"github.com/baznta/legal-intel-dashboard/internal/metrics"
	"github.com/baznta/legal-intel-dashboard/internal/objectstore"
	"github.com/baznta/legal-intel-dashboard/internal/processor"
	"github.com/baznta/legal-intel-dashboard/internal/slack"
	"github.com/baznta/legal-intel-dashboard/internal/store"
)

// queueGroup spreads text_extracted events across service instances.
const queueGroup = "legalintel-metadata"

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the metadata extraction service",
	Long: `Subscribe to text extraction events, store extracted metadata and
serve the HTTP API. Configuration is read from the environment and an
optional .env file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(os.Stdout, cfg.LogLevel)
	logger := slog.Default()

	logger.Info("legalintel starting", "port", cfg.Port, "version", version)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("database connected")

	var (
		opts    []processor.Option
		apiOpts []api.Option
	)

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer)
	opts = append(opts, processor.WithMetrics(m))

	// Object storage (optional). Needed for text too large to inline and for
	// reprocessing, which reads the archived copy.
	archived := false
	if cfg.S3Endpoint != "" || cfg.S3AccessKey != "" {
		objects, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("configure object storage: %w", err)
		}
		opts = append(opts, processor.WithTextSource(objects), processor.WithTextArchive(objects))
		archived = true
		logger.Info("object storage ready", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		logger.Warn("object storage not configured, only inline text will be processed and reprocessing is off")
	}

	// Redis dedup guard (optional)
	if cfg.RedisAddr != "" {
		guard, err := dedup.NewGuard(ctx, dedup.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.DedupTTL,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer guard.Close()
		opts = append(opts, processor.WithClaimer(guard))
		logger.Info("dedup guard ready", "addr", cfg.RedisAddr, "ttl", cfg.DedupTTL)
	} else {
		logger.Warn("redis not configured, redelivered events will be reprocessed")
	}

	// Slack review poster (optional, works without it, just no review loop)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		opts = append(opts, processor.WithReviewer(poster, cfg.ReviewThreshold))
		logger.Info("slack review poster ready", "channel", cfg.SlackChannel, "threshold", cfg.ReviewThreshold)
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer hermesClient.Close()
	logger.Info("NATS connected", "url", cfg.NatsURL)
	apiOpts = append(apiOpts, api.WithBroker(hermesClient))
	if archived {
		apiOpts = append(apiOpts, api.WithPublisher(hermesClient))
	}

	// Processor, the main pipeline step
	proc := processor.New(db, hermesClient, logger, opts...)
	if err := hermesClient.QueueSubscribe(hermes.SubjectTextExtracted, queueGroup, proc.HandleTextExtracted); err != nil {
		return fmt.Errorf("subscribe to text extracted events: %w", err)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, db, logger, apiOpts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Announce registration
	if err := hermesClient.Publish(hermes.SubjectServiceRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"version":   version,
	}); err != nil {
		logger.Warn("failed to publish registration", "error", err)
	}

	logger.Info("legalintel ready", "port", cfg.Port)

	// Graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := hermesClient.Flush(); err != nil {
		logger.Warn("NATS flush failed", "error", err)
	}

	logger.Info("legalintel stopped")
	return nil
}
