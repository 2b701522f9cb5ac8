// Package storage selects where analysis outputs are written.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/JakeFAU/concurrent-sentiment/internal/storage/gcs"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage/local"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage/memory"
)

// Provider names accepted by Open.
const (
	ProviderLocal  = "local"
	ProviderMemory = "memory"
	ProviderGCS    = "gcs"
)

// BlobStore is an object store for output files.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
	GetObject(ctx context.Context, objectPath string) ([]byte, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Dir      string
	Bucket   string
}

// Open builds the configured BlobStore. The returned close function is never
// nil.
func Open(ctx context.Context, cfg Config) (BlobStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "", ProviderLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case ProviderMemory:
		return memory.NewBlobStore(), noop, nil
	case ProviderGCS:
		store, err := gcs.Dial(ctx, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown output provider %q", cfg.Provider)
	}
}
