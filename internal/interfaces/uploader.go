package interfaces

import "context"

// Uploader stores a file in content-addressed storage.
type Uploader interface {
	// UploadBytes stores b and returns its content hash.
	UploadBytes(ctx context.Context, filename string, b []byte) (string, error)
	// RetrievalURL is the public URL for a stored content hash.
	RetrievalURL(contentHash string) string
}
