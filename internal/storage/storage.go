// Package storage keeps uploaded resource files either on local disk or in
// an S3-compatible bucket.  Paths handed out by Save are opaque keys that
// the other methods accept back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/iliyamo/scholrhub/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or try to leave the
// storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is implemented by LocalStore and S3Store.
type Store interface {
	// Save writes r under name and returns the key to persist.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object; a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns an address a browser can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicPrefix)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// cleanKey accepts a single flat file name.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || path.Clean(key) != key {
		return "", ErrInvalidKey
	}
	return key, nil
}
