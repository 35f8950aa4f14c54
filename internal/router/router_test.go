package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/scholrhub/internal/config"
	"github.com/iliyamo/scholrhub/internal/handler"
	"github.com/iliyamo/scholrhub/internal/metrics"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/utils"
)

const secret = "router-secret"

type users map[uint64]model.User

func (u users) GetByID(_ context.Context, id uint64) (model.User, error) {
	if v, ok := u[id]; ok {
		return v, nil
	}
	return model.User{}, repository.ErrNotFound
}

var accounts = users{
	1: {ID: 1, Name: "Head", Role: model.RoleAdmin},
	2: {ID: 2, Name: "Dr. Rao", Role: model.RoleFaculty},
	3: {ID: 3, Name: "Asha", Role: model.RoleStudent},
}

// newTestServer mounts every route.  Handlers have no stores: the cases
// below only reach the middleware in front of them.
func newTestServer() *echo.Echo {
	e := echo.New()
	authMW := middleware.JWTAuth(secret, accounts)
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	var cache *middleware.ResponseCache

	RegisterRoutes(e, handler.NewHealthHandler(nil, nil), metrics.New().Handler())
	RegisterAuth(e, handler.NewAuthHandler(config.Config{}, nil, nil, nil), authMW)
	RegisterResources(e, handler.NewResourceHandler(nil, nil, nil, cache, nil, nil), authMW, cache, pass, 1<<20)
	RegisterNotices(e, handler.NewNoticeHandler(nil, cache, nil), authMW, cache)
	stats := handler.NewStatsHandler(nil, nil)
	RegisterAdmin(e, handler.NewAdminHandler(config.Config{}, nil, nil, nil, cache, nil), stats, authMW)
	RegisterStats(e, stats, authMW)
	return e
}

func bearer(t *testing.T, id uint64) string {
	t.Helper()
	u := accounts[id]
	tok, err := utils.NewAccessToken(secret, u.ID, string(u.Role), 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestRouteGates(t *testing.T) {
	e := newTestServer()

	cases := []struct {
		name   string
		method string
		path   string
		as     uint64 // 0 = anonymous
		want   int
	}{
		{"resources need a token", http.MethodGet, "/v1/resources", 0, http.StatusUnauthorized},
		{"pending is staff only", http.MethodGet, "/v1/resources/pending", 3, http.StatusForbidden},
		{"approve is staff only", http.MethodPatch, "/v1/resources/4/approve", 3, http.StatusForbidden},
		{"reject is staff only", http.MethodPatch, "/v1/resources/4/reject", 3, http.StatusForbidden},
		{"delete is staff only", http.MethodDelete, "/v1/resources/4", 3, http.StatusForbidden},
		{"notices post is staff only", http.MethodPost, "/v1/notices", 3, http.StatusForbidden},
		{"notices delete is staff only", http.MethodDelete, "/v1/notices/1", 3, http.StatusForbidden},
		{"users are admin only", http.MethodGet, "/v1/admin/users", 2, http.StatusForbidden},
		{"settings are admin only", http.MethodPut, "/v1/admin/settings/x", 2, http.StatusForbidden},
		{"dashboard is staff only", http.MethodGet, "/v1/admin/stats", 3, http.StatusForbidden},
		{"stats need a token", http.MethodGet, "/v1/stats/activity", 0, http.StatusUnauthorized},
		{"me needs a token", http.MethodGet, "/v1/me", 0, http.StatusUnauthorized},
		{"logout needs a token", http.MethodPost, "/v1/auth/logout", 0, http.StatusUnauthorized},
		{"health is public", http.MethodGet, "/health", 0, http.StatusOK},
		{"metrics are public", http.MethodGet, "/metrics", 0, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.as != 0 {
				req.Header.Set(echo.HeaderAuthorization, bearer(t, tc.as))
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestTokenForDeletedUserIsRefused(t *testing.T) {
	e := newTestServer()
	tok, err := utils.NewAccessToken(secret, 99, "Admin", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsCaller(t *testing.T) {
	e := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 3))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Asha"`)
}

func TestBodyLimit(t *testing.T) {
	assert.Equal(t, "1034K", bodyLimit(10<<10))
	assert.Equal(t, "11264K", bodyLimit(10<<20))
}
