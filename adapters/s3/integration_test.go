//go:build integration

package s3

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostratum/diskx"
)

// These tests need a LocalStack or MinIO endpoint with an existing bucket.
// Set DISKX_S3_ENDPOINT and DISKX_S3_BUCKET to run them.
func integrationDisk(t *testing.T) diskx.DiskConfig {
	t.Helper()
	ep := os.Getenv("DISKX_S3_ENDPOINT")
	bucket := os.Getenv("DISKX_S3_BUCKET")
	if ep == "" || bucket == "" {
		t.Skip("DISKX_S3_ENDPOINT or DISKX_S3_BUCKET not set; skipping integration test")
	}
	return diskx.NewDiskConfig(diskx.DriverS3, map[string]string{
		"bucket":         bucket,
		"region":         "us-east-1",
		"endpoint":       ep,
		"use_path_style": "true",
		"key":            os.Getenv("AWS_ACCESS_KEY_ID"),
		"secret":         os.Getenv("AWS_SECRET_ACCESS_KEY"),
		"prefix":         "diskx-integration",
	})
}

func TestIntegration_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFromDisk(ctx, integrationDisk(t))
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = s.DeleteDirectory(context.Background(), "") })

	require.NoError(t, diskx.PutBytes(ctx, s, "hello.txt", []byte("hello"), nil))

	got, err := diskx.ReadAll(ctx, s, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	url, err := s.TemporaryURL(ctx, "hello.txt", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature")
}

func TestIntegration_AssumeRole(t *testing.T) {
	d := integrationDisk(t)
	role := os.Getenv("TEST_ROLE_ARN")
	if role == "" {
		t.Skip("TEST_ROLE_ARN not set; skipping AssumeRole integration test")
	}

	_, err := NewFromDisk(context.Background(), d.With("role_arn", role))
	require.NoError(t, err)
}
