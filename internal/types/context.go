package types

import (
	"context"
	"log/slog"
)

// CredentialSource records where the request's AWS credentials came from.
type CredentialSource string

const (
	CredentialSourceHeaders CredentialSource = "headers"
	CredentialSourceProfile CredentialSource = "profile"
	CredentialSourceActive  CredentialSource = "active_profile"
)

// Context Keys
type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	loggerKey      contextKey = "logger"
	credentialsKey contextKey = "aws_credentials"
)

// resolvedCredentials pairs credentials with their origin for storage in a context.
type resolvedCredentials struct {
	creds  AWSCredentials
	source CredentialSource
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLogger stores a request-scoped logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the logger from the context, falling back to
// slog.Default when none has been set.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// WithCredentials stores the AWS credentials resolved for the current request.
func WithCredentials(ctx context.Context, creds AWSCredentials, source CredentialSource) context.Context {
	return context.WithValue(ctx, credentialsKey, resolvedCredentials{creds: creds, source: source})
}

// GetCredentials retrieves the AWS credentials resolved for the current request.
func GetCredentials(ctx context.Context) (AWSCredentials, CredentialSource, bool) {
	rc, ok := ctx.Value(credentialsKey).(resolvedCredentials)
	if !ok {
		return AWSCredentials{}, "", false
	}
	return rc.creds, rc.source, true
}
