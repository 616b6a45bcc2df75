// Package storage is the gateway to the S3 bucket shared with the GSAP batch
// process. Every call is made with the caller's own credentials.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"rootle/internal/awsutil"
	"rootle/internal/types"
)

const defaultContentType = "text/plain"

// Gateway puts, lists and fetches objects.
type Gateway struct {
	clients ClientFactory
	logger  *slog.Logger
}

// NewGateway creates a Gateway. A nil logger falls back to slog.Default().
func NewGateway(clients ClientFactory, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{clients: clients, logger: logger}
}

// Put writes content to bucket/key.
func (g *Gateway) Put(ctx context.Context, creds types.AWSCredentials, bucket, key string, content []byte, contentType string) error {
	client, err := g.client(ctx, creds)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return storeError("put", bucket, key, err)
	}

	g.logger.InfoContext(ctx, "object uploaded", "bucket", bucket, "key", key, "size", len(content))
	return nil
}

// List returns every object under prefix, following continuation tokens.
func (g *Gateway) List(ctx context.Context, creds types.AWSCredentials, bucket, prefix string) ([]types.ObjectInfo, error) {
	client, err := g.client(ctx, creds)
	if err != nil {
		return nil, err
	}

	objects := []types.ObjectInfo{}
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError("list", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objects = append(objects, types.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
				Checksum:     strings.Trim(aws.ToString(obj.ETag), `"`),
			})
		}
	}

	g.logger.DebugContext(ctx, "objects listed", "bucket", bucket, "prefix", prefix, "count", len(objects))
	return objects, nil
}

// Get fetches the full body of bucket/key.
func (g *Gateway) Get(ctx context.Context, creds types.AWSCredentials, bucket, key string) (types.FileContent, error) {
	client, err := g.client(ctx, creds)
	if err != nil {
		return types.FileContent{}, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return types.FileContent{}, types.NewAppErrorWithDetails(
				types.ErrCodeNotFoundObject,
				"object not found",
				err,
				map[string]any{"bucket": bucket, "key": key},
			)
		}
		return types.FileContent{}, storeError("get", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return types.FileContent{}, storeError("read", bucket, key, err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	size := aws.ToInt64(out.ContentLength)
	if size == 0 {
		size = int64(len(body))
	}

	return types.FileContent{
		FileName:    path.Base(key),
		Content:     string(body),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Exists reports whether bucket/key is present.
func (g *Gateway) Exists(ctx context.Context, creds types.AWSCredentials, bucket, key string) (bool, error) {
	client, err := g.client(ctx, creds)
	if err != nil {
		return false, err
	}

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, storeError("head", bucket, key, err)
	}
	return true, nil
}

func (g *Gateway) client(ctx context.Context, creds types.AWSCredentials) (Client, error) {
	client, err := g.clients(ctx, creds)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamObjectStore, "failed to create object store client", err)
	}
	return client, nil
}

// isNotFound recognises both the typed S3 errors and the bare NotFound code
// HeadObject returns, which some S3-compatible stores also use for GetObject.
func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	switch awsutil.ErrorCode(err) {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}

// S3 error codes meaning the caller's keys were rejected, not that the store
// failed.
var credentialErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

func storeError(op, bucket, key string, err error) *types.AppError {
	code := types.ErrCodeUpstreamObjectStore
	if credentialErrorCodes[awsutil.ErrorCode(err)] {
		code = types.ErrCodeAuthInvalidCreds
	}
	return types.NewAppErrorWithDetails(
		code,
		awsutil.ErrorMessage(err),
		fmt.Errorf("%s s3://%s/%s: %w", op, bucket, key, err),
		map[string]any{"operation": op, "bucket": bucket, "key": key},
	)
}
