// Package config defines the configuration for the trigger dashboard API.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"rootle/internal/types"
)

// SecretString is an alias for types.SecretString so secret values resolved
// from SSM never reach logs.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"rootle-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	AWS           AWSConfig
	Storage       StorageConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Bootstrap     BootstrapConfig

	// Injected via ldflags, not Env
	Build BuildInfo `ignored:"true"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"3001" validate:"required,numeric"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s" validate:"gt=0"`
}

// AWSConfig holds the region and the optional endpoint override used for
// S3 and STS. The override points the service at LocalStack or MinIO.
type AWSConfig struct {
	Region         string `envconfig:"AWS_REGION" default:"us-east-1" validate:"required"`
	EndpointURL    string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
	ForcePathStyle bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
}

// StorageConfig locates the local profile and history files.
type StorageConfig struct {
	DataDir      string `envconfig:"DATA_DIR" default:"./data" validate:"required"`
	HistoryLimit int    `envconfig:"HISTORY_LIMIT" default:"500" validate:"min=1"`
}

// SecurityConfig holds browser-facing settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig controls CloudWatch request metrics.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Rootle" validate:"required"`
}

// BootstrapConfig optionally seeds a credential profile on an empty profile
// store. The secret is usually resolved through BOOTSTRAP_AWS_SECRET_ACCESS_KEY_SSM_PARAM.
type BootstrapConfig struct {
	ProfileName     string       `envconfig:"BOOTSTRAP_PROFILE_NAME" default:"default"`
	AccessKeyID     string       `envconfig:"BOOTSTRAP_AWS_ACCESS_KEY_ID"`
	SecretAccessKey SecretString `envconfig:"BOOTSTRAP_AWS_SECRET_ACCESS_KEY" validate:"required_with=AccessKeyID"`
	Region          string       `envconfig:"BOOTSTRAP_AWS_REGION"`
}

// Enabled reports whether a bootstrap profile was configured.
func (b BootstrapConfig) Enabled() bool {
	return b.AccessKeyID != "" && !b.SecretAccessKey.IsEmpty()
}

// IsLocal reports whether the service runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
