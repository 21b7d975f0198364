package s3client

import (
	"context"
	"mime"
	"net/http/httptest"
	"path"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// TestClient returns a client for a fresh bucket on an in-memory gofakes3
// server. The server stops when the test completes.
func TestClient(t testing.TB, bucketName string) *Client {
	t.Helper()

	backend := s3mem.New()
	if err := backend.CreateBucket(bucketName); err != nil {
		t.Fatalf("failed to create test bucket: %v", err)
	}
	ts := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(ts.Close)

	c, err := New(context.Background(), Config{
		Endpoint:        ts.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		BucketName:      bucketName,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return c
}

// SeedSite stores files (keyed by site-relative path) under prefix, with a
// content type derived from each extension.
func SeedSite(t testing.TB, c *Client, prefix string, files map[string]string) {
	t.Helper()

	ctx := context.Background()
	for name, body := range files {
		ctype := mime.TypeByExtension(path.Ext(name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		if err := c.PutObject(ctx, path.Join(prefix, name), []byte(body), ctype); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
}
