package core

import (
	"context"
	"net/http"
	"strings"

	"rootle/internal/types"
)

// Credential headers sent by the dashboard.
const (
	HeaderAccessKeyID     = "X-AWS-Access-Key-Id"
	HeaderSecretAccessKey = "X-AWS-Secret-Access-Key"
	HeaderRegion          = "X-AWS-Region"
	HeaderSessionToken    = "X-AWS-Session-Token"
	HeaderProfileID       = "X-AWS-Profile-Id"
)

// MissingCredentialsMessage is returned when no credentials could be resolved.
const MissingCredentialsMessage = "AWS credentials required: send X-AWS-* headers, X-AWS-Profile-Id, or activate a stored profile"

// CredentialsMiddleware resolves the AWS credentials for the request, in order:
//  1. X-AWS-Access-Key-Id, X-AWS-Secret-Access-Key, X-AWS-Region and the
//     optional X-AWS-Session-Token headers;
//  2. the stored profile named by X-AWS-Profile-Id;
//  3. the active stored profile.
//
// Resolved credentials are stored in the context. A resolution failure
// (partial headers, unknown profile ID, unreadable profile store) is stored
// instead and only reported by RequireCredentials, so routes that never touch
// AWS keep working with a stale header.
func (s *Server) CredentialsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := s.resolveCredentials(r)
		if err != nil {
			s.Logger.DebugContext(ctx, "credential resolution deferred", "error", err)
			ctx = context.WithValue(ctx, credentialsErrKey{}, err)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveCredentials(r *http.Request) (context.Context, error) {
	ctx := r.Context()

	creds, present := credentialsFromHeaders(r.Header)
	if present {
		if missing := missingCredentialHeaders(creds); len(missing) > 0 {
			return ctx, types.NewAppErrorWithDetails(
				types.ErrCodeAuthCredentialsMissing,
				"Incomplete AWS credential headers",
				nil,
				map[string]any{"missing_headers": missing},
			)
		}
		return types.WithCredentials(ctx, creds, types.CredentialSourceHeaders), nil
	}

	if s.Credentials == nil {
		return ctx, nil
	}

	if id := strings.TrimSpace(r.Header.Get(HeaderProfileID)); id != "" {
		creds, err := s.Credentials.ProfileCredentials(ctx, id)
		if err != nil {
			return ctx, err
		}
		return types.WithCredentials(ctx, creds, types.CredentialSourceProfile), nil
	}

	creds, ok, err := s.Credentials.ActiveCredentials(ctx)
	if err != nil {
		return ctx, err
	}
	if ok {
		ctx = types.WithCredentials(ctx, creds, types.CredentialSourceActive)
	}
	return ctx, nil
}

type credentialsErrKey struct{}

// CredentialsError returns the error CredentialsMiddleware hit while
// resolving credentials for this request, if any.
func CredentialsError(ctx context.Context) error {
	err, _ := ctx.Value(credentialsErrKey{}).(error)
	return err
}

// RequireCredentials rejects the request with the resolution error, or 401
// when CredentialsMiddleware resolved nothing.
func RequireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := CredentialsError(r.Context()); err != nil {
			Error(w, r, err)
			return
		}
		if _, _, ok := types.GetCredentials(r.Context()); !ok {
			Error(w, r, types.NewAppError(types.ErrCodeAuthCredentialsMissing, MissingCredentialsMessage, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// credentialsFromHeaders reads the X-AWS-* headers. present reports whether
// any of the three required headers was sent.
func credentialsFromHeaders(h http.Header) (creds types.AWSCredentials, present bool) {
	creds = types.AWSCredentials{
		AccessKeyID:     strings.TrimSpace(h.Get(HeaderAccessKeyID)),
		SecretAccessKey: types.SecretString(strings.TrimSpace(h.Get(HeaderSecretAccessKey))),
		Region:          strings.TrimSpace(h.Get(HeaderRegion)),
		SessionToken:    types.SecretString(strings.TrimSpace(h.Get(HeaderSessionToken))),
	}
	present = creds.AccessKeyID != "" || !creds.SecretAccessKey.IsEmpty() || creds.Region != ""
	return creds, present
}

func missingCredentialHeaders(c types.AWSCredentials) []string {
	var missing []string
	if c.AccessKeyID == "" {
		missing = append(missing, HeaderAccessKeyID)
	}
	if c.SecretAccessKey.IsEmpty() {
		missing = append(missing, HeaderSecretAccessKey)
	}
	if c.Region == "" {
		missing = append(missing, HeaderRegion)
	}
	return missing
}
