// Package objstore stores company logos in an S3 compatible bucket.
package objstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const keyPrefix = "logos/"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base objects are served from; defaults to the endpoint.
	PublicURL string
}

// Client is a content-addressed logo store: the object key is the sha256 of
// its bytes, so an upload of known content is a no-op.
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "company-logos"
	}

	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}

	return &Client{mc: mc, bucket: bucket, publicURL: public}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

func (c *Client) UploadBytes(ctx context.Context, filename string, b []byte) (string, error) {
	hash := ContentHash(b)
	key := objectKey(hash)

	exists, err := c.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return hash, nil
	}

	_, err = c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType:  contentType(b),
		UserMetadata: map[string]string{"original-filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return hash, nil
}

func (c *Client) RetrievalURL(hash string) string {
	return c.publicURL + "/" + c.bucket + "/" + objectKey(hash)
}

func (c *Client) exists(ctx context.Context, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func objectKey(hash string) string {
	return keyPrefix + hash
}

func contentType(b []byte) string {
	return http.DetectContentType(b)
}
