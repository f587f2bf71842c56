package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"

	"github.com/gostratum/diskx"
)

// FakeS3 is an in-memory S3 server for tests
type FakeS3 struct {
	Server  *httptest.Server
	Backend *s3mem.Backend
}

// NewFakeS3 starts a gofakes3 server with the given buckets. The server is
// closed when the test ends.
func NewFakeS3(t testing.TB, buckets ...string) *FakeS3 {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	for _, b := range buckets {
		if err := backend.CreateBucket(b); err != nil {
			t.Fatalf("create bucket %q: %v", b, err)
		}
	}

	return &FakeS3{Server: server, Backend: backend}
}

// DiskConfig returns an "s3" disk configuration pointing at the fake
// server. extra options override the defaults.
func (f *FakeS3) DiskConfig(bucket string, extra map[string]string) diskx.DiskConfig {
	opts := map[string]string{
		"bucket":         bucket,
		"region":         "us-east-1",
		"key":            "test",
		"secret":         "test",
		"endpoint":       f.Server.URL,
		"use_path_style": "true",
	}
	for k, v := range extra {
		opts[k] = v
	}
	return diskx.NewDiskConfig(diskx.DriverS3, opts)
}
