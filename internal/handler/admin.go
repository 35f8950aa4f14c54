package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/config"
	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/service"
)

// UserAdmin is the user store surface behind /v1/admin/users.
type UserAdmin interface {
	Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, name string, role model.Role, semester *int) error
	Delete(ctx context.Context, id uint64) error
}

// SettingStore reads and writes system_settings.
type SettingStore interface {
	List(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, key, value string) error
}

// UploaderRemover deletes a user together with the files of the resources
// that cascade away with them.  *service.ResourceLifecycle implements it.
type UploaderRemover interface {
	DeleteUploader(ctx context.Context, uploaderID uint64, deleteUser func(context.Context) error) error
}

// AdminHandler serves account and settings administration.
type AdminHandler struct {
	Cfg       config.Config
	Users     UserAdmin
	Settings  SettingStore
	Uploaders UploaderRemover
	Cache     CachePurger
	Log       *slog.Logger
}

func NewAdminHandler(cfg config.Config, users UserAdmin, settings SettingStore, uploaders UploaderRemover, cache CachePurger, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		Cfg:       cfg,
		Users:     users,
		Settings:  settings,
		Uploaders: uploaders,
		Cache:     cache,
		Log:       logger(log),
	}
}

type createUserReq struct {
	USN      string `json:"usn" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=Student Faculty Admin"`
	Semester *int   `json:"semester" validate:"omitempty,gt=0,max=255"`
}

type updateUserReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=Student Faculty Admin"`
	Semester *int   `json:"semester" validate:"omitempty,gt=0,max=255"`
}

type settingReq struct {
	Value string `json:"value" validate:"required,max=255"`
}

// ListUsers returns every account ordered by id.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return failure(c, h.Log, err, "failed to list users")
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser adds an account of any role.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.USN = strings.TrimSpace(req.USN)
	req.Name = strings.TrimSpace(req.Name)
	if err := service.Validate(req); err != nil {
		return failure(c, h.Log, err, "invalid user")
	}
	role, _ := model.ParseRole(req.Role) // oneof already checked

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, repository.NewUser{
		USN:      req.USN,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
		Semester: req.Semester,
	}, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrUSNExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "usn already exists"})
	}
	if err != nil {
		return failure(c, h.Log, err, "failed to create user")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return failure(c, h.Log, err, "failed to create user")
	}
	h.Log.Info("user created", slog.Uint64("user_id", id), slog.String("role", string(role)))
	return c.JSON(http.StatusCreated, u)
}

// UpdateUser overwrites name, role and semester.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := service.Validate(req); err != nil {
		return failure(c, h.Log, err, "invalid user")
	}
	role, _ := model.ParseRole(req.Role)

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Users.Update(ctx, id, req.Name, role, req.Semester)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return failure(c, h.Log, err, "failed to update user")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return failure(c, h.Log, err, "failed to update user")
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser removes an account along with its resources and their files.
// Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	if self, _ := middleware.UserID(c); self == id {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "admin cannot delete themselves"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Uploaders.DeleteUploader(ctx, id, func(ctx context.Context) error {
		return h.Users.Delete(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return failure(c, h.Log, err, "failed to delete user")
	}
	purge(ctx, h.Cache, h.Log, middleware.CacheResources)
	h.Log.Info("user deleted", slog.Uint64("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// ListSettings returns all system settings.
func (h *AdminHandler) ListSettings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Settings.List(ctx)
	if err != nil {
		return failure(c, h.Log, err, "failed to list settings")
	}
	return c.JSON(http.StatusOK, items)
}

var settingKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// numericSettings must hold non-negative integers since the dashboard
// does arithmetic on them.
var numericSettings = map[string]bool{
	model.SettingBaseResourceCount:      true,
	model.SettingBaseStudentReach:       true,
	model.SettingTargetContributionGoal: true,
}

// PutSetting creates or overwrites one setting.
func (h *AdminHandler) PutSetting(c echo.Context) error {
	key := c.Param("key")
	if !settingKeyRe.MatchString(key) {
		return invalid(c, service.FieldError{Field: "key", Error: "is invalid"})
	}
	var req settingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Value = strings.TrimSpace(req.Value)
	if err := service.Validate(req); err != nil {
		return failure(c, h.Log, err, "invalid setting")
	}
	if numericSettings[key] {
		if n, err := strconv.Atoi(req.Value); err != nil || n < 0 {
			return invalid(c, service.FieldError{Field: "value", Error: "must be a non-negative integer"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Settings.Upsert(ctx, key, req.Value); err != nil {
		h.Log.Error("setting upsert failed", slog.String("key", key), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save setting"})
	}
	return c.JSON(http.StatusOK, model.Setting{Key: key, Value: req.Value})
}
