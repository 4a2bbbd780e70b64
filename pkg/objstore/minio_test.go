package objstore

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestRetrievalURL(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/company-logos/logos/abc", c.RetrievalURL("abc"))

	c, err = NewClient(Config{
		Endpoint: "s3.internal:9000", AccessKey: "a", SecretKey: "b",
		Bucket: "logos-prod", UseSSL: true, PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/logos-prod/logos/abc", c.RetrievalURL("abc"))
}

func TestContentType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))))
	assert.Equal(t, "image/png", contentType(buf.Bytes()))
}

func TestClient_Integration(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	c, err := NewClient(Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		Bucket:    "test-" + uuid.NewString()[:8],
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.EnsureBucket(ctx))

	data := []byte("logo-" + uuid.NewString())
	hash, err := c.UploadBytes(ctx, "logo.png", data)
	require.NoError(t, err)
	assert.Equal(t, ContentHash(data), hash)

	again, err := c.UploadBytes(ctx, "other-name.png", data)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	res, err := http.Get(c.RetrievalURL(hash))
	require.NoError(t, err)
	defer res.Body.Close()
	// The bucket is private unless a policy says otherwise.
	assert.Contains(t, []int{http.StatusOK, http.StatusForbidden}, res.StatusCode)
}
