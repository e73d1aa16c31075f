package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})

	t.Run("CustomPresignDuration", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			PresignDuration: 7200,
		})
		require.NoError(t, err)
		assert.Equal(t, 7200*time.Second, backend.presignDuration)
	})

	t.Run("Prefix", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			Prefix:          "/envelopes/",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "envelopes/assets/ab/cd", backend.key("assets/ab/cd"))
	})
}

func TestS3Backend_PresignedDownloadURL(t *testing.T) {
	backend, err := New(Config{
		Bucket:          "asset-bucket",
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	url, err := backend.GetDownloadURL(context.Background(), "assets/ab/cdef.png", "cdef.asset")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/asset-bucket/assets/ab/cdef.png?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "response-content-disposition=")
}

func TestS3Backend_SSE(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		expected  types.ServerSideEncryption
		kmsKeySet bool
	}{
		{"Disabled", Config{}, "", false},
		{"AES256", Config{EnableSSE: true, SSEAlgorithm: "AES256"}, types.ServerSideEncryptionAes256, false},
		{"KMSWithKey", Config{EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}, types.ServerSideEncryptionAwsKms, true},
		{"KMSWithoutKey", Config{EnableSSE: true, SSEAlgorithm: "aws:kms"}, types.ServerSideEncryptionAwsKms, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{config: tt.config}
			input := &s3.PutObjectInput{}
			b.applySSE(input)
			assert.Equal(t, tt.expected, input.ServerSideEncryption)
			assert.Equal(t, tt.kmsKeySet, input.SSEKMSKeyId != nil)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &types.NoSuchBucket{})))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

// TestS3Backend_Integration requires a running MinIO instance or S3 credentials.
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	backend, err := New(Config{
		Bucket:                 bucket,
		Region:                 "us-east-1",
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := asset.FromBytes([]byte("Hello from S3 integration test!"), asset.WithFileName("hello.txt"))
	require.NoError(t, err)
	objectKey := fmt.Sprintf("test/integration/%d/%s", time.Now().UnixNano(), a.UniqueName())

	err = backend.UploadWithParams(ctx, bytes.NewReader(a.Encode()), simpleasset.UploadParams{
		ObjectKey: objectKey,
		MimeType:  asset.EnvelopeMediaType,
	})
	require.NoError(t, err)

	meta, err := backend.GetObjectMeta(ctx, objectKey)
	require.NoError(t, err)
	assert.Equal(t, int64(a.EnvelopeSize()), meta.Size)
	assert.Equal(t, asset.EnvelopeMediaType, meta.ContentType)

	reader, err := backend.Download(ctx, objectKey)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.True(t, a.Equal(asset.Decode(data)))

	require.NoError(t, backend.Delete(ctx, objectKey))
	_, err = backend.Download(ctx, objectKey)
	assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
}
