// Package handlers contains the HTTP handlers for the trigger dashboard API.
//
// Handlers decode and validate input, pull the request's AWS credentials
// from the context and delegate to the domain services. Errors are written
// through core.Error so every failure carries the standard envelope.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"rootle/internal/cloudservice"
	"rootle/internal/core"
	"rootle/internal/history"
	"rootle/internal/trigger"
	"rootle/internal/types"
)

// CloudService is the upload and monitor orchestrator.
type CloudService interface {
	PreviewEOD(req trigger.EODRequest) (trigger.GeneratedFile, error)
	PreviewMonthly(req trigger.MonthlyRequest) (trigger.GeneratedFile, error)
	GenerateEOD(ctx context.Context, creds types.AWSCredentials, req trigger.EODRequest) (types.UploadResult, error)
	GenerateMonthly(ctx context.Context, creds types.AWSCredentials, req trigger.MonthlyRequest) (types.UploadResult, error)
	Monitor(ctx context.Context, creds types.AWSCredentials, req cloudservice.MonitorRequest) (types.MatchResult, error)
	Status(ctx context.Context, creds types.AWSCredentials, req cloudservice.MonitorRequest) (cloudservice.TriggerStatus, error)
	Content(ctx context.Context, creds types.AWSCredentials, bucket, key string) (types.FileContent, error)
	ListOutputs(ctx context.Context, creds types.AWSCredentials, bucket, prefix string) ([]types.ObjectInfo, error)
}

// HistoryStore lists and clears recorded uploads.
type HistoryStore interface {
	List(ctx context.Context, f history.Filter) ([]history.Entry, error)
	Clear(ctx context.Context) error
}

// ListOutputsResponse is the body of GET /v1/cloud-services/outputs/list.
type ListOutputsResponse struct {
	Files []types.ObjectInfo `json:"files"`
}

// HistoryResponse is the body of GET /v1/cloud-services/history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// maxHistoryLimit caps the limit query parameter.
const maxHistoryLimit = history.DefaultLimit

// CloudServiceHandler serves the trigger generation and output monitoring
// endpoints.
type CloudServiceHandler struct {
	svc     CloudService
	history HistoryStore
	logger  *slog.Logger
}

// NewCloudServiceHandler creates a CloudServiceHandler. history may be nil,
// in which case the history endpoints answer with an empty list.
func NewCloudServiceHandler(svc CloudService, hist HistoryStore, l *slog.Logger) *CloudServiceHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CloudServiceHandler{svc: svc, history: hist, logger: l}
}

// RegisterRoutes mounts the /cloud-services routes. Previews and history need
// no AWS credentials; everything touching S3 sits behind RequireCredentials.
func (h *CloudServiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cloud-services", func(r chi.Router) {
		r.Post("/gsap-eod/preview", h.PreviewEOD)
		r.Post("/gsap-monthly/preview", h.PreviewMonthly)
		r.Get("/history", h.ListHistory)
		r.Delete("/history", h.ClearHistory)

		r.Group(func(r chi.Router) {
			r.Use(core.RequireCredentials)
			r.Post("/gsap-eod/generate", h.GenerateEOD)
			r.Post("/gsap-monthly/generate", h.GenerateMonthly)
			r.Get("/outputs/monitor", h.Monitor)
			r.Get("/outputs/status", h.Status)
			r.Get("/outputs/content", h.Content)
			r.Get("/outputs/list", h.ListOutputs)
		})
	})
}

// PreviewEOD handles POST /v1/cloud-services/gsap-eod/preview.
func (h *CloudServiceHandler) PreviewEOD(w http.ResponseWriter, r *http.Request) {
	var req trigger.EODRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	file, err := h.svc.PreviewEOD(req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, file)
}

// PreviewMonthly handles POST /v1/cloud-services/gsap-monthly/preview.
func (h *CloudServiceHandler) PreviewMonthly(w http.ResponseWriter, r *http.Request) {
	var req trigger.MonthlyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	file, err := h.svc.PreviewMonthly(req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, file)
}

// GenerateEOD handles POST /v1/cloud-services/gsap-eod/generate.
func (h *CloudServiceHandler) GenerateEOD(w http.ResponseWriter, r *http.Request) {
	var req trigger.EODRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	creds, _, _ := types.GetCredentials(r.Context())
	result, err := h.svc.GenerateEOD(r.Context(), creds, req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.writeUpload(w, r, result)
}

// GenerateMonthly handles POST /v1/cloud-services/gsap-monthly/generate.
func (h *CloudServiceHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	var req trigger.MonthlyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	creds, _, _ := types.GetCredentials(r.Context())
	result, err := h.svc.GenerateMonthly(r.Context(), creds, req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.writeUpload(w, r, result)
}

// writeUpload answers 200 for a stored trigger and 502 with the same body
// when the object store rejected it.
func (h *CloudServiceHandler) writeUpload(w http.ResponseWriter, r *http.Request, result types.UploadResult) {
	if !result.Success {
		core.JSON(w, r, http.StatusBadGateway, result)
		return
	}
	core.JSON(w, r, http.StatusOK, result)
}

// Monitor handles GET /v1/cloud-services/outputs/monitor.
func (h *CloudServiceHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	creds, _, _ := types.GetCredentials(r.Context())
	result, err := h.svc.Monitor(r.Context(), creds, monitorRequest(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, result)
}

// Status handles GET /v1/cloud-services/outputs/status.
func (h *CloudServiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	creds, _, _ := types.GetCredentials(r.Context())
	status, err := h.svc.Status(r.Context(), creds, monitorRequest(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, status)
}

// Content handles GET /v1/cloud-services/outputs/content.
func (h *CloudServiceHandler) Content(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	creds, _, _ := types.GetCredentials(r.Context())

	content, err := h.svc.Content(r.Context(), creds, q.Get("bucketName"), q.Get("filePath"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, content)
}

// ListOutputs handles GET /v1/cloud-services/outputs/list.
func (h *CloudServiceHandler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	creds, _, _ := types.GetCredentials(r.Context())

	files, err := h.svc.ListOutputs(r.Context(), creds, q.Get("bucketName"), q.Get("exportPath"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if files == nil {
		files = []types.ObjectInfo{}
	}
	core.JSON(w, r, http.StatusOK, ListOutputsResponse{Files: files})
}

// ListHistory handles GET /v1/cloud-services/history?serviceType=&limit=.
func (h *CloudServiceHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.Filter{ServiceType: types.ServiceType(q.Get("serviceType"))}

	if filter.ServiceType != "" && !filter.ServiceType.IsValid() {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationServiceType,
			"Invalid service type",
			nil,
			map[string]any{"serviceType": string(filter.ServiceType)},
		))
		return
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxHistoryLimit {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidField,
				"limit must be a number between 1 and "+strconv.Itoa(maxHistoryLimit),
				nil,
			))
			return
		}
		filter.Limit = limit
	}

	entries := []history.Entry{}
	if h.history != nil {
		list, err := h.history.List(r.Context(), filter)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		if list != nil {
			entries = list
		}
	}
	core.JSON(w, r, http.StatusOK, HistoryResponse{Entries: entries})
}

// ClearHistory handles DELETE /v1/cloud-services/history.
func (h *CloudServiceHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.history != nil {
		if err := h.history.Clear(r.Context()); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	h.logger.InfoContext(r.Context(), "upload history cleared")
	w.WriteHeader(http.StatusNoContent)
}

func monitorRequest(r *http.Request) cloudservice.MonitorRequest {
	q := r.URL.Query()
	return cloudservice.MonitorRequest{
		ServiceType:     types.ServiceType(strings.TrimSpace(q.Get("serviceType"))),
		BucketName:      strings.TrimSpace(q.Get("bucketName")),
		SFTPUser:        strings.TrimSpace(q.Get("sftpUser")),
		TriggerFileName: strings.TrimSpace(q.Get("triggerFileName")),
	}
}
