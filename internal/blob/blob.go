package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// Store is the durability contract the tracker relies on: a key-addressed
// blob store with overwrite-on-upload and list-by-prefix. Implementations
// must treat Upload as an upsert.
type Store interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
