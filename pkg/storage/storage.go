package storage

import "context"

// BlobStorage abstracts the object store holding attachment payloads.
type BlobStorage interface {
	// Save writes data under objectPath and returns a publicly
	// accessible URL for it.
	Save(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
	Exists(ctx context.Context, objectPath string) (bool, error)
	Download(ctx context.Context, objectPath string) ([]byte, error)
	Delete(ctx context.Context, objectPath string) error
}
