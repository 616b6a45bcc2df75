package config

import "context"

// SecretProvider resolves secret values by SSM parameter path.
type SecretProvider interface {
	// GetParametersBatch returns path -> plaintext for every resolved key.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
