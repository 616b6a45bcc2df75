package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rootle/internal/core"
	"rootle/internal/profiles"
	"rootle/internal/types"
)

// ProfileStore is the credential profile store.
type ProfileStore interface {
	List(ctx context.Context) ([]profiles.Profile, error)
	Get(ctx context.Context, id string) (profiles.Profile, error)
	Create(ctx context.Context, in profiles.CreateInput) (profiles.Profile, error)
	Update(ctx context.Context, id string, in profiles.UpdateInput) (profiles.Profile, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) (profiles.Profile, error)
	RecordValidation(ctx context.Context, id string, valid bool, checkedAt time.Time) (profiles.Profile, error)
}

// ProfileResponse is the public view of a profile. Secrets never leave the
// server; the access key is masked to its last four characters.
type ProfileResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AccessKeyID     string     `json:"accessKeyId"`
	Region          string     `json:"region"`
	HasSessionToken bool       `json:"hasSessionToken"`
	IsActive        bool       `json:"isActive"`
	IsValid         *bool      `json:"isValid,omitempty"`
	LastValidated   *time.Time `json:"lastValidated,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProfileListResponse is the body of GET /v1/aws/profiles.
type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

// ParseCredentialsRequest is the body of POST /v1/aws/profiles/parse.
type ParseCredentialsRequest struct {
	Text string `json:"text" validate:"required"`
}

// ParsedCredentialsResponse reports what was recognised in pasted text. The
// secret key is masked; the client keeps the text it sent.
type ParsedCredentialsResponse struct {
	AccessKeyID        string `json:"accessKeyId,omitempty"`
	SecretAccessKey    string `json:"secretAccessKey,omitempty"`
	Region             string `json:"region,omitempty"`
	HasSessionToken    bool   `json:"hasSessionToken"`
	HasSecretAccessKey bool   `json:"hasSecretAccessKey"`
}

// ProfileValidationResponse is the body of POST /v1/aws/profiles/{id}/validate.
type ProfileValidationResponse struct {
	Profile    ProfileResponse            `json:"profile"`
	Validation types.CredentialValidation `json:"validation"`
}

// ProfileHandler manages stored credential profiles.
type ProfileHandler struct {
	store     ProfileStore
	checker   CredentialValidator
	validator *core.Validator
	logger    *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(store ProfileStore, checker CredentialValidator, v *core.Validator, l *slog.Logger) *ProfileHandler {
	if l == nil {
		l = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(l)
	}
	return &ProfileHandler{store: store, checker: checker, validator: v, logger: l}
}

// RegisterRoutes mounts the /aws/profiles routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/aws/profiles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/parse", h.Parse)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/activate", h.Activate)
		r.Post("/{id}/validate", h.Validate)
	})
}

// List handles GET /v1/aws/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	data := make([]ProfileResponse, 0, len(list))
	for _, p := range list {
		data = append(data, toProfileResponse(p))
	}
	core.JSON(w, r, http.StatusOK, ProfileListResponse{Profiles: data})
}

// Create handles POST /v1/aws/profiles.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in profiles.CreateInput
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.store.Create(r.Context(), in)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "profile created",
		"profile_id", p.ID,
		"access_key", types.MaskIdentifier(p.AccessKeyID),
		"active", p.IsActive,
	)
	core.JSON(w, r, http.StatusCreated, toProfileResponse(p))
}

// Parse handles POST /v1/aws/profiles/parse.
func (h *ProfileHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseCredentialsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	parsed := profiles.ParseCredentialText(req.Text)
	if parsed.Empty() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidCredential,
			"No AWS credentials found in text",
			nil,
		))
		return
	}

	resp := ParsedCredentialsResponse{
		AccessKeyID:        parsed.AccessKeyID,
		Region:             parsed.Region,
		HasSessionToken:    parsed.SessionToken != "",
		HasSecretAccessKey: parsed.SecretAccessKey != "",
	}
	if parsed.SecretAccessKey != "" {
		resp.SecretAccessKey = types.MaskIdentifier(parsed.SecretAccessKey)
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// Get handles GET /v1/aws/profiles/{id}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, toProfileResponse(p))
}

// Update handles PATCH /v1/aws/profiles/{id}.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in profiles.UpdateInput
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, toProfileResponse(p))
}

// Delete handles DELETE /v1/aws/profiles/{id}.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "profile deleted", "profile_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /v1/aws/profiles/{id}/activate.
func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.SetActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, toProfileResponse(p))
}

// Validate handles POST /v1/aws/profiles/{id}/validate. The outcome is
// stored on the profile and returned alongside it. The profile is left
// untouched when STS cannot be reached.
func (h *ProfileHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.checker.Validate(r.Context(), p.Credentials())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	updated, err := h.store.RecordValidation(r.Context(), id, result.IsValid, result.CheckedAt)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "profile validated",
		"profile_id", id,
		"valid", result.IsValid,
	)
	core.JSON(w, r, http.StatusOK, ProfileValidationResponse{
		Profile:    toProfileResponse(updated),
		Validation: result,
	})
}

func toProfileResponse(p profiles.Profile) ProfileResponse {
	return ProfileResponse{
		ID:              p.ID,
		Name:            p.Name,
		AccessKeyID:     types.MaskIdentifier(p.AccessKeyID),
		Region:          p.Region,
		HasSessionToken: !p.SessionToken.IsEmpty(),
		IsActive:        p.IsActive,
		IsValid:         p.IsValid,
		LastValidated:   p.LastValidated,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
