package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootle/internal/types"
)

type mockS3 struct {
	putFn  func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	getFn  func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	headFn func(ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	listFn func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.putFn(ctx, in)
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.getFn(ctx, in)
}

func (m *mockS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return m.headFn(ctx, in)
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return m.listFn(ctx, in)
}

var testCreds = types.AWSCredentials{
	AccessKeyID:     "AKIAEXAMPLE",
	SecretAccessKey: types.SecretString("secret"),
	Region:          "us-east-1",
}

func newTestGateway(client Client) *Gateway {
	return NewGateway(func(context.Context, types.AWSCredentials) (Client, error) {
		return client, nil
	}, nil)
}

func TestGateway_Put(t *testing.T) {
	var got *s3.PutObjectInput
	var body string
	gw := newTestGateway(&mockS3{
		putFn: func(_ context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			got = in
			b, _ := io.ReadAll(in.Body)
			body = string(b)
			return &s3.PutObjectOutput{}, nil
		},
	})

	err := gw.Put(context.Background(), testCreds, "bucket", "acme/Import/EODSales/x.txt", []byte("1\n2"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "bucket", aws.ToString(got.Bucket))
	assert.Equal(t, "acme/Import/EODSales/x.txt", aws.ToString(got.Key))
	assert.Equal(t, "text/plain", aws.ToString(got.ContentType))
	assert.Equal(t, "1\n2", body)
}

func TestGateway_Put_Error(t *testing.T) {
	gw := newTestGateway(&mockS3{
		putFn: func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
		},
	})

	err := gw.Put(context.Background(), testCreds, "bucket", "key", nil, "text/plain")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamObjectStore, appErr.Code)
	assert.Equal(t, "Access Denied", appErr.Message)
}

func TestGateway_CredentialRejections(t *testing.T) {
	tests := []struct {
		code string
		want types.ErrorCode
	}{
		{"InvalidAccessKeyId", types.ErrCodeAuthInvalidCreds},
		{"SignatureDoesNotMatch", types.ErrCodeAuthInvalidCreds},
		{"ExpiredToken", types.ErrCodeAuthInvalidCreds},
		{"InvalidToken", types.ErrCodeAuthInvalidCreds},
		{"AccessDenied", types.ErrCodeUpstreamObjectStore},
		{"SlowDown", types.ErrCodeUpstreamObjectStore},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			msg := "S3 says " + tt.code
			gw := newTestGateway(&mockS3{
				listFn: func(context.Context, *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
					return nil, &smithy.GenericAPIError{Code: tt.code, Message: msg}
				},
				headFn: func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
					return nil, &smithy.GenericAPIError{Code: tt.code, Message: msg}
				},
			})

			_, err := gw.List(context.Background(), testCreds, "bucket", "p")
			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.want, appErr.Code)
			assert.Equal(t, msg, appErr.Message)

			_, err = gw.Exists(context.Background(), testCreds, "bucket", "k")
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.want, appErr.Code)
		})
	}
}

func TestGateway_ClientFactoryError(t *testing.T) {
	gw := NewGateway(func(context.Context, types.AWSCredentials) (Client, error) {
		return nil, errors.New("bad config")
	}, nil)

	_, err := gw.List(context.Background(), testCreds, "bucket", "prefix")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamObjectStore, appErr.Code)
}

func TestGateway_List_Paginates(t *testing.T) {
	ts := time.Date(2025, 1, 16, 1, 30, 0, 0, time.UTC)
	calls := 0
	gw := newTestGateway(&mockS3{
		listFn: func(_ context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			calls++
			assert.Equal(t, "acme/Export/EODSales", aws.ToString(in.Prefix))
			if in.ContinuationToken == nil {
				return &s3.ListObjectsV2Output{
					Contents: []s3types.Object{
						{Key: aws.String("a.txt"), LastModified: aws.Time(ts), Size: aws.Int64(3), ETag: aws.String(`"abc"`)},
						{Key: nil},
					},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("page2"),
				}, nil
			}
			assert.Equal(t, "page2", aws.ToString(in.ContinuationToken))
			return &s3.ListObjectsV2Output{
				Contents:    []s3types.Object{{Key: aws.String("b.txt")}},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	})

	objs, err := gw.List(context.Background(), testCreds, "bucket", "acme/Export/EODSales")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, objs, 2)
	assert.Equal(t, types.ObjectInfo{Key: "a.txt", LastModified: ts, Size: 3, Checksum: "abc"}, objs[0])
	assert.Equal(t, "b.txt", objs[1].Key)
}

func TestGateway_List_Empty(t *testing.T) {
	gw := newTestGateway(&mockS3{
		listFn: func(context.Context, *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{}, nil
		},
	})

	objs, err := gw.List(context.Background(), testCreds, "bucket", "p")
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)
}

func TestGateway_List_Error(t *testing.T) {
	gw := newTestGateway(&mockS3{
		listFn: func(context.Context, *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return nil, &s3types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
		},
	})

	_, err := gw.List(context.Background(), testCreds, "missing", "p")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamObjectStore, appErr.Code)
	assert.Equal(t, "The specified bucket does not exist", appErr.Message)
}

func TestGateway_Get(t *testing.T) {
	tests := []struct {
		name            string
		out             *s3.GetObjectOutput
		wantContentType string
		wantSize        int64
	}{
		{
			name:            "headers present",
			out:             &s3.GetObjectOutput{ContentType: aws.String("application/xml"), ContentLength: aws.Int64(42)},
			wantContentType: "application/xml",
			wantSize:        42,
		},
		{
			name:            "defaults",
			out:             &s3.GetObjectOutput{},
			wantContentType: "text/plain",
			wantSize:        5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(&mockS3{
				getFn: func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
					tt.out.Body = io.NopCloser(strings.NewReader("<x/>\n"))
					return tt.out, nil
				},
			})

			fc, err := gw.Get(context.Background(), testCreds, "bucket", "acme/Export/FuelMonthEndDips/f.xml")
			require.NoError(t, err)
			assert.Equal(t, "f.xml", fc.FileName)
			assert.Equal(t, "<x/>\n", fc.Content)
			assert.Equal(t, tt.wantContentType, fc.ContentType)
			assert.Equal(t, tt.wantSize, fc.Size)
		})
	}
}

func TestGateway_Get_NotFound(t *testing.T) {
	gw := newTestGateway(&mockS3{
		getFn: func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, &s3types.NoSuchKey{}
		},
	})

	_, err := gw.Get(context.Background(), testCreds, "bucket", "missing.txt")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundObject, appErr.Code)
}

func TestGateway_Exists(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{"present", nil, true, false},
		{"typed not found", &s3types.NotFound{}, false, false},
		{"generic not found code", &smithy.GenericAPIError{Code: "NotFound"}, false, false},
		{"forbidden", &smithy.GenericAPIError{Code: "Forbidden", Message: "Forbidden"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(&mockS3{
				headFn: func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &s3.HeadObjectOutput{}, nil
				},
			})

			got, err := gw.Exists(context.Background(), testCreds, "bucket", "key")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
