// Package upload accepts multipart resource files, checks them against the
// configured allowlist and size limit and places them in file storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/scholrhub/internal/config"
	"github.com/iliyamo/scholrhub/internal/service"
	"github.com/iliyamo/scholrhub/internal/storage"
)

var (
	ErrMissingFile    = errors.New("file is required")
	ErrFileTooLarge   = errors.New("file exceeds the upload limit")
	ErrTypeNotAllowed = errors.New("file type not allowed")
)

// Uploader validates and stores incoming files.
type Uploader struct {
	store    storage.Store
	maxBytes int64
	allowed  map[string]bool
	now      func() time.Time
	newID    func() string
}

func New(store storage.Store, cfg config.UploadConfig) *Uploader {
	return &Uploader{
		store:    store,
		maxBytes: cfg.MaxBytes,
		allowed:  cfg.AllowedExtensions,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// MaxBytes is the per-file limit.
func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

// Accept checks fh and writes it to storage as <unix-ms>-<uuid><ext>.
func (u *Uploader) Accept(ctx context.Context, fh *multipart.FileHeader) (service.StoredFile, error) {
	if fh == nil {
		return service.StoredFile{}, ErrMissingFile
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !u.allowed[ext] {
		return service.StoredFile{}, fmt.Errorf("%w: %q", ErrTypeNotAllowed, ext)
	}
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return service.StoredFile{}, ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return service.StoredFile{}, fmt.Errorf("upload: open part: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), u.newID(), ext)
	key, err := u.store.Save(ctx, name, src)
	if err != nil {
		return service.StoredFile{}, err
	}
	return service.StoredFile{Path: key, Ext: ext}, nil
}

// Discard removes a stored file whose resource row was never written.
func (u *Uploader) Discard(ctx context.Context, f service.StoredFile) error {
	return u.store.Delete(ctx, f.Path)
}

// Allowed lists the accepted extensions, for error messages.
func (u *Uploader) Allowed() []string {
	out := make([]string, 0, len(u.allowed))
	for e := range u.allowed {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
