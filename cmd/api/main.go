// Package main is the entry point for the trigger dashboard API server.
//
// It loads configuration, opens the local profile and history stores, wires
// the S3 gateway, the STS validator and the orchestrator into the HTTP
// chassis, and serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"rootle/internal/api/handlers"
	"rootle/internal/awsutil"
	"rootle/internal/cloudservice"
	"rootle/internal/config"
	"rootle/internal/core"
	"rootle/internal/history"
	"rootle/internal/identity"
	"rootle/internal/profiles"
	"rootle/internal/storage"
)

const (
	profilesFile = "profiles.json"
	historyFile  = "history.json"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("trigger dashboard API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Observability.MetricsEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading aws config for metrics: %w", err)
		}
		srv.Metrics = core.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
		logger.Info("cloudwatch request metrics enabled", "namespace", cfg.Observability.MetricNamespace)
	}

	srv.MountRoutes()
	return runHTTPServer(srv, cfg, logger)
}

// secretProvider returns nil in the local environment, where SSM resolution
// is skipped, and an SSM provider otherwise.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"))
}

// buildServer wires every dependency into a core.Server. Routes are not
// mounted so callers can still swap the metrics collector.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	profileBackend, err := profiles.NewFileBackend(filepath.Join(cfg.Storage.DataDir, profilesFile))
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}
	profileStore, err := profiles.NewStore(ctx, profileBackend, logger)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	if err := seedBootstrapProfile(ctx, profileStore, cfg, logger); err != nil {
		return nil, err
	}

	historyBackend, err := history.NewFileBackend(filepath.Join(cfg.Storage.DataDir, historyFile))
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	historyStore, err := history.NewStore(ctx, historyBackend, cfg.Storage.HistoryLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Credentials = profileStore
	srv.HealthProbes = append(srv.HealthProbes, core.DirProbe{Dir: cfg.Storage.DataDir})

	endpoint := awsutil.Endpoint{URL: cfg.AWS.EndpointURL, ForcePathStyle: cfg.AWS.ForcePathStyle}
	gateway := storage.NewGateway(storage.NewClientFactory(endpoint), logger)
	checker := identity.NewValidator(identity.NewClientFactory(endpoint), logger)

	svc := cloudservice.NewService(cloudservice.Config{
		Store:     gateway,
		History:   historyStore,
		Validator: srv.Validator,
		Logger:    logger,
	})

	cloudHandler := handlers.NewCloudServiceHandler(svc, historyStore, logger)
	awsHandler := handlers.NewAWSHandler(checker, logger)
	profileHandler := handlers.NewProfileHandler(profileStore, checker, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		cloudHandler.RegisterRoutes,
		awsHandler.RegisterRoutes,
		profileHandler.RegisterRoutes,
	)
	return srv, nil
}

// profileSeeder is the part of the profile store bootstrap seeding needs.
type profileSeeder interface {
	List(ctx context.Context) ([]profiles.Profile, error)
	Create(ctx context.Context, in profiles.CreateInput) (profiles.Profile, error)
}

// seedBootstrapProfile stores the configured bootstrap credentials when the
// profile store is empty. Existing profiles are never touched.
func seedBootstrapProfile(ctx context.Context, store profileSeeder, cfg *config.Config, logger *slog.Logger) error {
	b := cfg.Bootstrap
	if !b.Enabled() {
		return nil
	}

	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("profiles already present, bootstrap profile skipped", "count", len(existing))
		return nil
	}

	region := b.Region
	if region == "" {
		region = cfg.AWS.Region
	}
	p, err := store.Create(ctx, profiles.CreateInput{
		Name:            b.ProfileName,
		AccessKeyID:     b.AccessKeyID,
		SecretAccessKey: b.SecretAccessKey.Unmask(),
		Region:          region,
	})
	if err != nil {
		return fmt.Errorf("seeding bootstrap profile: %w", err)
	}
	logger.Info("bootstrap profile created", "profile_id", p.ID, "name", p.Name, "region", p.Region)
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	// WriteTimeout leaves headroom over the per-request context deadline.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
