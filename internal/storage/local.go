package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps files in one directory that the HTTP server also
// exposes under PublicPrefix.
type LocalStore struct {
	dir    string
	prefix string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, prefix: "/" + strings.Trim(publicPrefix, "/")}, nil
}

// Dir is the directory served as static content.
func (s *LocalStore) Dir() string { return s.dir }

// Prefix is the URL path files are served under.
func (s *LocalStore) Prefix() string { return s.prefix }

func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	key, err := cleanKey(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.dir, key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + "/" + key, nil
}
