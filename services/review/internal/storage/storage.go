package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/utafrali/fitvibe/pkg/slug"
)

// Storage defines the interface for review image storage.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for the given key.
	GetURL(ctx context.Context, key string) (string, error)

	// KeyForURL maps a public URL produced by this storage back to its key.
	// It returns false for URLs the storage did not issue.
	KeyForURL(url string) (string, bool)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ObjectKey builds the key of a review image. The random prefix keeps two
// uploads with the same file name apart.
func ObjectKey(productID, reviewID, filename string) string {
	return fmt.Sprintf("reviews/%s/%s/%s-%s", productID, reviewID, uuid.NewString()[:8], slug.Filename(filename))
}
