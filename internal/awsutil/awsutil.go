// Package awsutil builds AWS SDK configuration from the per-request
// credentials the dashboard works with.
package awsutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"rootle/internal/types"
)

// Endpoint overrides where S3 and STS requests go. The zero value targets AWS.
type Endpoint struct {
	URL            string
	ForcePathStyle bool
}

// ConfigFor returns an aws.Config that signs with creds only. Ambient
// credentials from the environment or shared files are never consulted.
func ConfigFor(ctx context.Context, creds types.AWSCredentials, endpoint Endpoint) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(creds.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey.Unmask(),
			creds.SessionToken.Unmask(),
		)),
	}
	if endpoint.URL != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint.URL))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	return cfg, nil
}

// ErrorCode returns the AWS API error code carried by err, if any.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// ErrorMessage returns the service-supplied message for err when there is one,
// falling back to err.Error().
func ErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}
