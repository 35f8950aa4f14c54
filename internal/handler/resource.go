package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/queue"
	"github.com/iliyamo/scholrhub/internal/service"
	"github.com/iliyamo/scholrhub/internal/upload"
)

// Resources is the lifecycle surface the resource endpoints drive.
// *service.ResourceLifecycle implements it.
type Resources interface {
	Submit(ctx context.Context, file service.StoredFile, meta service.SubmitMeta, uploader service.Actor) (model.Resource, error)
	Get(ctx context.Context, id uint64) (model.Resource, error)
	ListApproved(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error)
	ListPending(ctx context.Context) ([]model.Resource, error)
	Approve(ctx context.Context, id uint64) error
	Reject(ctx context.Context, id uint64) error
}

// FileIntake stores and discards uploaded files.  *upload.Uploader
// implements it.
type FileIntake interface {
	Accept(ctx context.Context, fh *multipart.FileHeader) (service.StoredFile, error)
	Discard(ctx context.Context, f service.StoredFile) error
	MaxBytes() int64
	Allowed() []string
}

// FileLinker turns a stored key into a URL the client can fetch.
type FileLinker interface {
	URL(ctx context.Context, key string) (string, error)
}

type ResourceHandler struct {
	Resources Resources
	Uploads   FileIntake
	Files     FileLinker
	Cache     CachePurger
	Events    EventPublisher
	Log       *slog.Logger
	now       func() time.Time
}

func NewResourceHandler(res Resources, up FileIntake, files FileLinker, cache CachePurger, events EventPublisher, log *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		Resources: res,
		Uploads:   up,
		Files:     files,
		Cache:     cache,
		Events:    events,
		Log:       logger(log),
		now:       time.Now,
	}
}

// Upload accepts a multipart form with a `file` part and the resource
// metadata.  Staff uploads are published immediately; student uploads wait
// for moderation.
func (h *ResourceHandler) Upload(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	meta, fields := submitMetaFromForm(c)
	if len(fields) > 0 {
		return invalid(c, fields...)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return invalid(c, service.FieldError{Field: "file", Error: "is required"})
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": upload.ErrFileTooLarge.Error()})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	stored, err := h.Uploads.Accept(ctx, fh)
	switch {
	case errors.Is(err, upload.ErrTypeNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "file type not allowed",
			"allowed": h.Uploads.Allowed(),
		})
	case errors.Is(err, upload.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error":     upload.ErrFileTooLarge.Error(),
			"max_bytes": h.Uploads.MaxBytes(),
		})
	case errors.Is(err, upload.ErrMissingFile):
		return invalid(c, service.FieldError{Field: "file", Error: "is required"})
	case err != nil:
		h.Log.Error("store upload failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	res, err := h.Resources.Submit(ctx, stored, meta, who)
	if err != nil {
		if derr := h.Uploads.Discard(ctx, stored); derr != nil {
			h.Log.Warn("discard upload failed", slog.String("path", stored.Path), sl.Err(derr))
		}
		return failure(c, h.Log, err, "failed to submit resource")
	}
	if res.Status == model.StatusApproved {
		purge(ctx, h.Cache, h.Log, middleware.CacheResources)
	}

	msg := "resource submitted for review"
	if res.Status == model.StatusApproved {
		msg = "resource published"
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg, "resource": res})
}

// List returns approved resources.  Optional query filters: semester,
// subject_code, professor_name.
func (h *ResourceHandler) List(c echo.Context) error {
	var f model.ResourceFilter
	if s := strings.TrimSpace(c.QueryParam("semester")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return invalid(c, service.FieldError{Field: "semester", Error: "must be a positive integer"})
		}
		f.Semester = n
	}
	f.SubjectCode = strings.TrimSpace(c.QueryParam("subject_code"))
	f.Professor = strings.TrimSpace(c.QueryParam("professor_name"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Resources.ListApproved(ctx, f)
	if err != nil {
		return failure(c, h.Log, err, "failed to list resources")
	}
	return c.JSON(http.StatusOK, items)
}

// Pending lists submissions awaiting moderation.
func (h *ResourceHandler) Pending(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Resources.ListPending(ctx)
	if err != nil {
		return failure(c, h.Log, err, "failed to list pending resources")
	}
	return c.JSON(http.StatusOK, items)
}

// Approve publishes a pending resource.  Unknown or already approved ids
// succeed without effect.
func (h *ResourceHandler) Approve(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	before, found, err := h.lookup(ctx, id)
	if err != nil {
		return failure(c, h.Log, err, "failed to approve resource")
	}
	if err := h.Resources.Approve(ctx, id); err != nil {
		return failure(c, h.Log, err, "failed to approve resource")
	}
	if found && before.Status == model.StatusPending {
		purge(ctx, h.Cache, h.Log, middleware.CacheResources)
		h.announce(ctx, c, before, queue.ActionApproved)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "resource approved"})
}

// Reject removes a resource and its file.  Unknown ids succeed without
// effect.
func (h *ResourceHandler) Reject(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	before, found, err := h.lookup(ctx, id)
	if err != nil {
		return failure(c, h.Log, err, "failed to reject resource")
	}
	if err := h.Resources.Reject(ctx, id); err != nil {
		return failure(c, h.Log, err, "failed to reject resource")
	}
	if found {
		if before.Status == model.StatusApproved {
			purge(ctx, h.Cache, h.Log, middleware.CacheResources)
		}
		h.announce(ctx, c, before, queue.ActionRejected)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "resource rejected"})
}

// File redirects to the stored file.  Pending resources are visible only to
// moderators and to their uploader.
func (h *ResourceHandler) File(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Resources.Get(ctx, id)
	if err != nil {
		return failure(c, h.Log, err, "failed to load resource")
	}
	if res.Status != model.StatusApproved && !who.Role.CanModerate() && res.UploadedBy != who.ID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	url, err := h.Files.URL(ctx, res.FilePath)
	if err != nil {
		h.Log.Error("file url failed", slog.Uint64("resource_id", id), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "file unavailable"})
	}
	return c.Redirect(http.StatusFound, url)
}

// lookup fetches the resource before a moderation action so the event can
// carry its title and uploader.
func (h *ResourceHandler) lookup(ctx context.Context, id uint64) (model.Resource, bool, error) {
	res, err := h.Resources.Get(ctx, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return model.Resource{}, false, nil
	case err != nil:
		return model.Resource{}, false, err
	}
	return res, true, nil
}

func (h *ResourceHandler) announce(ctx context.Context, c echo.Context, res model.Resource, action string) {
	if h.Events == nil {
		return
	}
	moderator, _ := middleware.UserID(c)
	ev := queue.ResourceModeratedEvent{
		ResourceID:  res.ID,
		Title:       res.Title,
		UploaderID:  res.UploadedBy,
		Action:      action,
		ModeratorID: moderator,
		At:          h.now().UTC().Format(time.RFC3339),
	}
	// publish failures are logged by the publisher
	_ = h.Events.PublishModerated(ctx, ev)
}

// submitMetaFromForm reads the metadata fields of an upload form.  Numeric
// fields that do not parse are reported here; everything else is checked by
// the lifecycle.
func submitMetaFromForm(c echo.Context) (service.SubmitMeta, []service.FieldError) {
	var fields []service.FieldError
	num := func(name string) int {
		s := strings.TrimSpace(c.FormValue(name))
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fields = append(fields, service.FieldError{Field: name, Error: "must be a number"})
		}
		return n
	}
	meta := service.SubmitMeta{
		Title:         c.FormValue("title"),
		Semester:      num("semester"),
		SubjectCode:   c.FormValue("subject_code"),
		Unit:          num("unit"),
		ProfessorName: c.FormValue("professor_name"),
	}
	return meta, fields
}
