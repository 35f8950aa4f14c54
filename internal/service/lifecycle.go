// Package service holds the moderation workflow and the dashboard
// aggregates.  It talks to persistence and file storage only through the
// small interfaces declared here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
)

// ResourceStore is the persistence the lifecycle needs.
type ResourceStore interface {
	Insert(ctx context.Context, res *model.Resource) error
	GetByID(ctx context.Context, id uint64) (model.Resource, error)
	ListApproved(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error)
	ListPending(ctx context.Context) ([]model.Resource, error)
	Approve(ctx context.Context, id uint64) error
	FilePath(ctx context.Context, id uint64) (string, error)
	FilePathsByUploader(ctx context.Context, uploaderID uint64) ([]string, error)
	Delete(ctx context.Context, id uint64) error
}

// FileStore is the part of file storage used when resources are removed.
// Delete must not fail for a missing file.
type FileStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// Recorder receives lifecycle counters.  *metrics.Metrics implements it.
type Recorder interface {
	ResourceSubmitted(status string)
	ResourceModerated(action string)
	StorageCleanupFailed()
}

type nopRecorder struct{}

func (nopRecorder) ResourceSubmitted(string) {}
func (nopRecorder) ResourceModerated(string) {}
func (nopRecorder) StorageCleanupFailed()    {}

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	ID   uint64
	Role model.Role
}

// StoredFile is what the upload step hands over once the file is placed.
type StoredFile struct {
	Path string
	Ext  string // with leading dot, as received
}

// SubmitMeta is the descriptive part of a submission.
type SubmitMeta struct {
	Title         string `json:"title" validate:"required,max=255"`
	Semester      int    `json:"semester" validate:"required,gt=0,max=255"`
	SubjectCode   string `json:"subject_code" validate:"required,max=32"`
	Unit          int    `json:"unit" validate:"required,gt=0,max=255"`
	ProfessorName string `json:"professor_name" validate:"max=120"`
}

// InitialStatus is Approved for staff uploads and Pending for everyone else.
func InitialStatus(role model.Role) model.Status {
	if role == model.RoleAdmin || role == model.RoleFaculty {
		return model.StatusApproved
	}
	return model.StatusPending
}

// ResourceLifecycle creates resources and moves them through moderation.
type ResourceLifecycle struct {
	resources ResourceStore
	files     FileStore
	log       *slog.Logger
	metrics   Recorder
	now       func() time.Time
}

// NewResourceLifecycle wires the lifecycle.  A nil recorder disables metrics.
func NewResourceLifecycle(resources ResourceStore, files FileStore, log *slog.Logger, rec Recorder) *ResourceLifecycle {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ResourceLifecycle{
		resources: resources,
		files:     files,
		log:       log.With(slog.String("component", "resource_lifecycle")),
		metrics:   rec,
		now:       time.Now,
	}
}

// Submit records a new resource for an already stored file.
func (s *ResourceLifecycle) Submit(ctx context.Context, file StoredFile, meta SubmitMeta, uploader Actor) (model.Resource, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.SubjectCode = strings.TrimSpace(meta.SubjectCode)
	meta.ProfessorName = strings.TrimSpace(meta.ProfessorName)
	if err := Validate(meta); err != nil {
		return model.Resource{}, err
	}

	res := model.Resource{
		Title:       meta.Title,
		FilePath:    file.Path,
		FileType:    strings.ToLower(strings.TrimPrefix(file.Ext, ".")),
		Semester:    meta.Semester,
		SubjectCode: meta.SubjectCode,
		Unit:        meta.Unit,
		UploadedBy:  uploader.ID,
		Status:      InitialStatus(uploader.Role),
		UploadDate:  s.now().UTC().Truncate(time.Second),
	}
	if meta.ProfessorName != "" {
		p := meta.ProfessorName
		res.ProfessorName = &p
	}

	if err := s.resources.Insert(ctx, &res); err != nil {
		return model.Resource{}, persistence("submit resource", err)
	}
	s.metrics.ResourceSubmitted(string(res.Status))
	s.log.Info("resource submitted",
		slog.Uint64("resource_id", res.ID),
		slog.Uint64("uploader_id", uploader.ID),
		slog.String("status", string(res.Status)))
	return res, nil
}

// Get returns one resource with its uploader name.
func (s *ResourceLifecycle) Get(ctx context.Context, id uint64) (model.Resource, error) {
	res, err := s.resources.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Resource{}, ErrNotFound
	}
	if err != nil {
		return model.Resource{}, persistence("get resource", err)
	}
	return res, nil
}

// ListApproved returns approved resources matching f, newest first.
func (s *ResourceLifecycle) ListApproved(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	f.SubjectCode = strings.TrimSpace(f.SubjectCode)
	f.Professor = strings.TrimSpace(f.Professor)
	list, err := s.resources.ListApproved(ctx, f)
	if err != nil {
		return nil, persistence("list approved resources", err)
	}
	return list, nil
}

// ListPending returns the moderation queue.
func (s *ResourceLifecycle) ListPending(ctx context.Context) ([]model.Resource, error) {
	list, err := s.resources.ListPending(ctx)
	if err != nil {
		return nil, persistence("list pending resources", err)
	}
	return list, nil
}

// Approve moves a pending resource to Approved.  Approving a missing or
// already approved resource changes nothing and is not an error.
func (s *ResourceLifecycle) Approve(ctx context.Context, id uint64) error {
	if err := s.resources.Approve(ctx, id); err != nil {
		return persistence("approve resource", err)
	}
	s.metrics.ResourceModerated("approve")
	s.log.Info("resource approved", slog.Uint64("resource_id", id))
	return nil
}

// Reject deletes the backing file, best effort, and then the row.  A
// missing row means the rejection already happened.
func (s *ResourceLifecycle) Reject(ctx context.Context, id uint64) error {
	path, err := s.resources.FilePath(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return persistence("reject resource", err)
	}

	s.removeFile(ctx, "reject", path, slog.Uint64("resource_id", id))

	if err := s.resources.Delete(ctx, id); err != nil {
		return persistence("reject resource", err)
	}
	s.metrics.ResourceModerated("reject")
	s.log.Info("resource rejected", slog.Uint64("resource_id", id))
	return nil
}

// DeleteUploader removes a user through deleteUser and then the backing
// files of every resource they uploaded, whose rows go with the user.  The
// paths are read first since the rows are gone afterwards.  An error from
// deleteUser is returned unwrapped and leaves the files in place.
func (s *ResourceLifecycle) DeleteUploader(ctx context.Context, uploaderID uint64, deleteUser func(context.Context) error) error {
	paths, err := s.resources.FilePathsByUploader(ctx, uploaderID)
	if err != nil {
		return persistence("list uploader files", err)
	}
	if err := deleteUser(ctx); err != nil {
		return err
	}
	for _, p := range paths {
		s.removeFile(ctx, "delete uploader", p, slog.Uint64("uploader_id", uploaderID))
	}
	s.log.Info("uploader removed",
		slog.Uint64("uploader_id", uploaderID),
		slog.Int("files", len(paths)))
	return nil
}

// removeFile never fails the caller; storage problems are logged and counted.
func (s *ResourceLifecycle) removeFile(ctx context.Context, op, path string, attrs ...any) {
	log := s.log.With(attrs...).With(slog.String("op", op), slog.String("path", path))

	ok, err := s.files.Exists(ctx, path)
	if err != nil {
		s.metrics.StorageCleanupFailed()
		log.Error("stat backing file", sl.Err(err))
		return
	}
	if !ok {
		log.Warn("backing file already absent")
		return
	}
	if err := s.files.Delete(ctx, path); err != nil {
		s.metrics.StorageCleanupFailed()
		log.Error("delete backing file", sl.Err(err))
	}
}
