// Package core provides the HTTP chassis for the trigger dashboard API: the
// chi router, the ordered middleware chain, response helpers, request
// validation, health probes and request metrics. Domain handlers plug in
// through V1RouteRegistrars.
package core

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rootle/internal/config"
	"rootle/internal/types"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records latency and count for one request. route is the
	// matched chi pattern, not the raw path.
	RecordRequest(method, route, status string, duration time.Duration)
}

// metricsFlusher is implemented by collectors that buffer data points.
type metricsFlusher interface {
	Flush(ctx context.Context) error
}

// CredentialResolver looks up stored credential profiles for requests that
// do not carry credentials in headers.
type CredentialResolver interface {
	ProfileCredentials(ctx context.Context, id string) (types.AWSCredentials, error)
	ActiveCredentials(ctx context.Context) (types.AWSCredentials, bool, error)
}

// Server holds the dependencies shared by every route.
type Server struct {
	Config      *config.Config
	Logger      *slog.Logger
	Validator   *Validator
	Metrics     MetricsCollector
	Credentials CredentialResolver

	// V1RouteRegistrars mount the domain handlers under /v1. They are set by
	// the composition root so core never imports handler packages.
	V1RouteRegistrars []func(r chi.Router)

	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer creates a Server with an empty router. Routes are mounted by
// MountRoutes once registrars and probes are in place.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown flushes buffered metrics.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if f, ok := s.Metrics.(metricsFlusher); ok {
		if err := f.Flush(ctx); err != nil {
			s.Logger.Error("error flushing metrics", "error", err)
			return err
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
