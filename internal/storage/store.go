package storage

import "context"

// ObjectStore abstracts where generated images and uploads live. The
// filesystem implementation backs development and tests, the S3 one
// production.
type ObjectStore interface {
	// Write persists data under key and returns the canonical key.
	Write(ctx context.Context, key string, data []byte) (string, error)
	// Read returns the bytes stored under key.
	Read(ctx context.Context, key string) ([]byte, error)
	// URL returns an address a browser can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
}
