// Package main is the entry point for the reviewloop API server.
//
// It loads configuration, connects the PostgreSQL pool and the optional AWS
// integrations (SQS audit trail, CloudWatch metrics), wires the webhook
// ingest and dispatch pipeline, and serves HTTP until a shutdown signal
// arrives (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"reviewloop/internal/api/handlers"
	"reviewloop/internal/config"
	"reviewloop/internal/core"
	"reviewloop/internal/db"
	"reviewloop/internal/external"
	"reviewloop/internal/ingest"
	"reviewloop/internal/invites"
	"reviewloop/internal/metrics"
	"reviewloop/internal/queue"
	"reviewloop/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("reviewloop API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Database pool.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	store := db.NewInvitationRepository(pool)

	// Optional AWS integrations. Empty identifiers disable them.
	emitter, audit, err := buildAWSIntegrations(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Outbound clients.
	mailer := external.NewMailClient(
		&http.Client{Timeout: cfg.Mail.Timeout},
		external.MailClientConfig{
			APIBase:     cfg.Mail.APIBase,
			APIKey:      cfg.Mail.APIKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
			Logger:      logger,
		},
	)

	var contacts types.ContactLookup
	if cfg.Intercom.AccessToken != "" {
		contacts = external.NewContactClient(
			&http.Client{Timeout: 10 * time.Second},
			external.ContactClientConfig{
				APIBase:     cfg.Intercom.APIBase,
				AccessToken: cfg.Intercom.AccessToken,
				Logger:      logger,
			},
		)
	}

	// Dispatch pipeline.
	stats := invites.NewStats(emitter)
	dispatcher := invites.NewDispatcher(invites.DispatcherParams{
		Store:         store,
		Sender:        mailer,
		Stats:         stats,
		Audit:         audit,
		Scheduler:     invites.NewTimerScheduler(logger),
		Logger:        logger,
		MaxRetries:    cfg.Dispatch.MaxRetries,
		RetryDelays:   cfg.Dispatch.RetryDelays,
		SendTimeout:   cfg.Dispatch.SendTimeout,
		MaxConcurrent: cfg.Dispatch.MaxConcurrentDispatches,
		BusinessName:  cfg.Review.BusinessName,
		ReviewDomain:  cfg.Review.Domain,
	})
	dedup := invites.NewDeduplicator(store, types.RealClock{}, logger)
	ingestor := ingest.NewIngestor(cfg.Intercom.CloseTopics, contacts, logger)

	// HTTP server.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes(
		handlers.NewWebhookHandler(ingestor, dedup, dispatcher, logger).RegisterRoutes,
		handlers.NewInvitationsHandler(store, stats, logger).RegisterRoutes,
		handlers.NewHealthHandler(pool, logger).RegisterRoutes,
	)

	return runHTTPServer(srv, cfg, logger)
}

// buildAWSIntegrations wires the CloudWatch emitter and the SQS audit
// publisher when their identifiers are configured. Either may come back nil.
func buildAWSIntegrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) (invites.Emitter, types.AuditLogger, error) {
	if cfg.AWS.MetricNamespace == "" && cfg.AWS.AuditQueueURL == "" {
		return nil, nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	var emitter invites.Emitter
	if cfg.AWS.MetricNamespace != "" {
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		emitter = metrics.NewCloudWatchEmitter(client, cfg.AWS.MetricNamespace, logger)
	}

	var audit types.AuditLogger
	if cfg.AWS.AuditQueueURL != "" {
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		audit = queue.NewAuditPublisher(client, cfg.AWS.AuditQueueURL, logger)
	}

	return emitter, audit, nil
}

// runHTTPServer serves until a shutdown signal or server error, then drains
// in-flight requests within the configured timeout. In-process retry timers
// are volatile and do not survive shutdown; affected records stay in the
// retrying state.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured JSON logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
