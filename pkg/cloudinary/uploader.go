package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader stores images under a public id derived from their
// sha256, so identical logos share one asset.
type CloudinaryUploader struct {
	cld    *cld.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloud *cld.Cloudinary, folder string) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cloud, folder: folder}
}

func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (u *CloudinaryUploader) publicID(hash string) string {
	if u.folder == "" {
		return hash
	}
	return path.Join(u.folder, hash)
}

func (u *CloudinaryUploader) UploadBytes(ctx context.Context, filename string, b []byte) (string, error) {
	hash := ContentHash(b)

	_, err := u.cld.Upload.Upload(ctx, bytes.NewReader(b), uploader.UploadParams{
		PublicID:       u.publicID(hash),
		Overwrite:      api.Bool(false),
		UniqueFilename: api.Bool(false),
		ResourceType:   "image",
		Context:        api.CldAPIMap{"original_filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary: %w", err)
	}
	return hash, nil
}

// RetrievalURL returns the delivery URL of the asset stored for hash.
func (u *CloudinaryUploader) RetrievalURL(hash string) string {
	img, err := u.cld.Image(u.publicID(hash))
	if err != nil {
		return ""
	}
	url, err := img.String()
	if err != nil {
		return ""
	}
	return url
}
