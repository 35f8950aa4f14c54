package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/service"
)

type NoticeStore interface {
	Create(ctx context.Context, n *model.Notice) error
	List(ctx context.Context) ([]model.Notice, error)
	Delete(ctx context.Context, id uint64) error
}

// NoticeHandler serves department notices.
type NoticeHandler struct {
	Notices NoticeStore
	Cache   CachePurger
	Log     *slog.Logger
	now     func() time.Time
}

func NewNoticeHandler(notices NoticeStore, cache CachePurger, log *slog.Logger) *NoticeHandler {
	return &NoticeHandler{Notices: notices, Cache: cache, Log: logger(log), now: time.Now}
}

type noticeReq struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

func (h *NoticeHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req noticeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := service.Validate(req); err != nil {
		return failure(c, h.Log, err, "invalid notice")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	n := model.Notice{
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: uid,
		CreatedAt: h.now().UTC().Truncate(time.Second),
	}
	if u, ok := middleware.CurrentUser(c); ok {
		n.AuthorName = u.Name
	}
	if err := h.Notices.Create(ctx, &n); err != nil {
		return failure(c, h.Log, err, "failed to create notice")
	}
	purge(ctx, h.Cache, h.Log, middleware.CacheNotices)
	return c.JSON(http.StatusCreated, n)
}

// List returns notices newest first with author names.
func (h *NoticeHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Notices.List(ctx)
	if err != nil {
		return failure(c, h.Log, err, "failed to list notices")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NoticeHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Notices.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notice not found"})
	}
	if err != nil {
		return failure(c, h.Log, err, "failed to delete notice")
	}
	purge(ctx, h.Cache, h.Log, middleware.CacheNotices)
	return c.JSON(http.StatusOK, echo.Map{"message": "notice deleted"})
}
