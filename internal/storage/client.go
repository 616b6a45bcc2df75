package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rootle/internal/awsutil"
	"rootle/internal/types"
)

// Client is the subset of the S3 API the gateway uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ Client = (*s3.Client)(nil)

// ClientFactory returns an S3 client authenticated as creds.
type ClientFactory func(ctx context.Context, creds types.AWSCredentials) (Client, error)

// NewClientFactory returns a ClientFactory producing real S3 clients.
func NewClientFactory(endpoint awsutil.Endpoint) ClientFactory {
	return func(ctx context.Context, creds types.AWSCredentials) (Client, error) {
		cfg, err := awsutil.ConfigFor(ctx, creds, endpoint)
		if err != nil {
			return nil, err
		}
		return s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = endpoint.ForcePathStyle
		}), nil
	}
}
