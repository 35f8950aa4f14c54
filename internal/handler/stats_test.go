package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/service"
)

func TestDashboardUsesCaller(t *testing.T) {
	stats := &fakeStats{}
	h := NewStatsHandler(stats, nil)

	c, rec := newJSONCtx(http.MethodGet, "/v1/admin/stats", "")
	middleware.SetIdentity(c, faculty)
	require.NoError(t, h.Dashboard(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, faculty.ID, stats.dashboardFor)
	d := decode[service.Dashboard](t, rec.Body.Bytes())
	assert.Equal(t, "Top 1%", d.ClassRank)
	assert.Contains(t, rec.Body.String(), `"classRank"`)
}

func TestDashboardFailureIsOpaque(t *testing.T) {
	h := NewStatsHandler(&fakeStats{err: &service.PersistenceError{Op: "dashboard", Err: errDB}}, nil)

	c, rec := newJSONCtx(http.MethodGet, "/v1/admin/stats", "")
	middleware.SetIdentity(c, faculty)
	require.NoError(t, h.Dashboard(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestActivityEndpoints(t *testing.T) {
	h := NewStatsHandler(&fakeStats{}, nil)

	c, rec := newJSONCtx(http.MethodGet, "/v1/stats/activity", "")
	require.NoError(t, h.Activity(c))
	assert.JSONEq(t, `{"labels":["Mon"],"vals":[2],"unreadNotices":1}`, rec.Body.String())

	c, rec = newJSONCtx(http.MethodGet, "/v1/stats/me/activity", "")
	middleware.SetIdentity(c, student)
	require.NoError(t, h.MyActivity(c))
	assert.JSONEq(t, `[{"date":"2026-10-12","count":1}]`, rec.Body.String())
}

func TestMySubmissionsLimit(t *testing.T) {
	cases := []struct {
		query     string
		want      int
		wantLimit int
	}{
		{"", http.StatusOK, 0},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=1000", http.StatusOK, maxSubmissionsLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			stats := &fakeStats{}
			h := NewStatsHandler(stats, nil)
			c, rec := newJSONCtx(http.MethodGet, "/v1/stats/me/submissions"+tc.query, "")
			middleware.SetIdentity(c, student)

			require.NoError(t, h.MySubmissions(c))
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.wantLimit, stats.limit)
		})
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cases := []struct {
		name string
		h    *HealthHandler
		want int
		body string
	}{
		{"no redis", NewHealthHandler(pinger{}, nil), http.StatusOK,
			`{"status":"ok","db":"ok","redis":"disabled"}`},
		{"with redis", NewHealthHandler(pinger{}, rdb), http.StatusOK,
			`{"status":"ok","db":"ok","redis":"ok"}`},
		{"db down", NewHealthHandler(pinger{err: errors.New("down")}, rdb), http.StatusServiceUnavailable,
			`{"status":"degraded","db":"down","redis":"ok"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newJSONCtx(http.MethodGet, "/health", "")
			require.NoError(t, tc.h.Health(c))
			assert.Equal(t, tc.want, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}
