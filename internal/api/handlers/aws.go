package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rootle/internal/core"
	"rootle/internal/types"
)

// CredentialValidator checks AWS credentials against STS. An error means STS
// could not give an answer; rejected credentials come back in the result.
type CredentialValidator interface {
	Validate(ctx context.Context, creds types.AWSCredentials) (types.CredentialValidation, error)
}

// ValidateCredentialsRequest is the body of POST /v1/aws/validate-credentials.
// An empty body validates the credentials resolved for the request instead.
type ValidateCredentialsRequest struct {
	AccessKeyID     string             `json:"accessKeyId"`
	SecretAccessKey types.SecretString `json:"secretAccessKey"`
	Region          string             `json:"region"`
	SessionToken    types.SecretString `json:"sessionToken,omitempty"`
}

func (req ValidateCredentialsRequest) empty() bool {
	return req.AccessKeyID == "" && req.SecretAccessKey.IsEmpty() && req.Region == "" && req.SessionToken.IsEmpty()
}

// AWSHandler serves ad-hoc credential validation.
type AWSHandler struct {
	validator CredentialValidator
	logger    *slog.Logger
}

// NewAWSHandler creates an AWSHandler.
func NewAWSHandler(v CredentialValidator, l *slog.Logger) *AWSHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AWSHandler{validator: v, logger: l}
}

// RegisterRoutes mounts POST /aws/validate-credentials.
func (h *AWSHandler) RegisterRoutes(r chi.Router) {
	r.Post("/aws/validate-credentials", h.ValidateCredentials)
}

// ValidateCredentials answers 200 with the identity for valid credentials
// and 401 with the failure reason otherwise. The body is a
// CredentialValidation in both cases. An unreachable STS is a 502 error
// envelope.
func (h *AWSHandler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	var req ValidateCredentialsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil && !core.IsEmptyBody(err) {
		core.Error(w, r, err)
		return
	}

	creds := types.AWSCredentials{
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		Region:          req.Region,
		SessionToken:    req.SessionToken,
	}
	if req.empty() {
		if err := core.CredentialsError(r.Context()); err != nil {
			core.Error(w, r, err)
			return
		}
		creds, _, _ = types.GetCredentials(r.Context())
	}

	result, err := h.validator.Validate(r.Context(), creds)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !result.IsValid {
		h.logger.WarnContext(r.Context(), "credential validation failed",
			"access_key", types.MaskIdentifier(creds.AccessKeyID),
			"reason", result.Error,
		)
		core.JSON(w, r, http.StatusUnauthorized, result)
		return
	}

	h.logger.InfoContext(r.Context(), "credentials validated",
		"access_key", types.MaskIdentifier(creds.AccessKeyID),
		"account_id", result.AccountID,
	)
	core.JSON(w, r, http.StatusOK, result)
}
