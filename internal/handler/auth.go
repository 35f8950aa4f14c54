package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/config"
	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/service"
	"github.com/iliyamo/scholrhub/internal/utils"
)

// UserStore is the part of repository.UserRepo the auth and admin
// handlers need.
type UserStore interface {
	Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
	GetByUSN(ctx context.Context, usn string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Log    *slog.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: logger(log)}
}

// ----- DTOs -----

type registerReq struct {
	USN      string `json:"usn"`
	Name     string `json:"name"`
	Semester *int   `json:"semester"`
	Password string `json:"password"`
	Role     string `json:"role"` // Student | Faculty
}
type loginReq struct {
	USN      string `json:"usn"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// missingFields lists empty register fields in the order the client form
// shows them.
func (r registerReq) missingFields() []service.FieldError {
	var out []service.FieldError
	add := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, service.FieldError{Field: field, Error: "is required"})
		}
	}
	add("usn", r.USN)
	add("name", r.Name)
	add("password", r.Password)
	add("role", r.Role)
	return out
}

// Register creates a Student or Faculty account and returns tokens
// immediately.  Admin accounts are created through the admin API only.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if missing := req.missingFields(); len(missing) > 0 {
		return invalid(c, missing...)
	}
	role, ok := model.ParseRole(strings.TrimSpace(req.Role))
	if !ok || role == model.RoleAdmin {
		return invalid(c, service.FieldError{Field: "role", Error: "must be Student or Faculty"})
	}
	if req.Semester != nil && *req.Semester <= 0 {
		return invalid(c, service.FieldError{Field: "semester", Error: "must be greater than 0"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		USN:      req.USN,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
		Semester: req.Semester,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUSNExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "usn already exists"})
		}
		h.Log.Error("register failed", slog.String("usn", req.USN), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.Log.Error("load new user failed", slog.Uint64("user_id", uid), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.issue(ctx, c, u, http.StatusCreated)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.USN) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "usn/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByUSN(ctx, req.USN)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("login lookup failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.issue(ctx, c, u, http.StatusOK)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	uid, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		h.Log.Error("refresh validate failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		h.Log.Error("refresh revoke failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		h.Log.Error("refresh user lookup failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return h.issue(ctx, c, u, http.StatusOK)
}

// Logout revokes the given refresh token, or every token of the caller
// when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()

	var err error
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		err = h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	} else {
		err = h.Tokens.RevokeAllForUser(ctx, uid)
	}
	if err != nil {
		h.Log.Error("logout failed", slog.Uint64("user_id", uid), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the caller as loaded by JWTAuth.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.Log.Error("store refresh failed", slog.Uint64("user_id", u.ID), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
