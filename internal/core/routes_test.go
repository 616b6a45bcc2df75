package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootle/internal/types"
)

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMountRoutes_Health(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMountRoutes_Info(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rootle-api", body["service"])
	assert.Equal(t, "local", body["environment"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "abc123", body["commit"])
	assert.NotEmpty(t, body["time"])
}

func TestMountRoutes_V1Registrars(t *testing.T) {
	srv := newTestServer(t)
	srv.V1RouteRegistrars = []func(r chi.Router){
		func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
				JSON(w, r, http.StatusOK, map[string]string{"pong": "ok"})
			})
		},
	}
	srv.MountRoutes()

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pong":"ok"}`, rec.Body.String())

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMountRoutes_RequestIDPropagated(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := serve(srv, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestMountRoutes_PanicBecomes500Envelope(t *testing.T) {
	srv := newTestServer(t)
	srv.V1RouteRegistrars = []func(r chi.Router){
		func(r chi.Router) {
			r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
		},
	}
	srv.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/v1/boom", nil)
	req.Header.Set("X-Request-Id", "req-panic")
	rec := serve(srv, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), body.Error.Code)
	assert.Equal(t, "req-panic", body.Error.RequestID)
}

func TestMountRoutes_RecordsRoutePatternMetrics(t *testing.T) {
	metrics := &MockMetricsCollector{}
	srv := newTestServer(t)
	srv.Metrics = metrics
	srv.V1RouteRegistrars = []func(r chi.Router){
		func(r chi.Router) {
			r.Get("/profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		},
	}
	srv.MountRoutes()

	serve(srv, httptest.NewRequest(http.MethodGet, "/v1/profiles/abc", nil))

	calls := metrics.Snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/v1/profiles/{id}", calls[0].Route)
	assert.Equal(t, "204", calls[0].Status)
}

func TestMountRoutes_CORSPreflightAllowsCredentialHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/v1/cloud-services/history", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := serve(srv, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), HeaderSecretAccessKey)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), HeaderProfileID)
}

func TestRequestTimeout_FromConfig(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, defaultRequestTimeout, srv.requestTimeout())

	srv.Config.Server.RequestTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, srv.requestTimeout())
}

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := ContextTimeoutMiddleware(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var fromCtx string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		fromCtx = types.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))

	assert.Len(t, fromCtx, 32)
	assert.Equal(t, fromCtx, rec.Header().Get("X-Request-Id"))
}
