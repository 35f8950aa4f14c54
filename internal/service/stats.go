package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/scholrhub/internal/model"
)

// Defaults applied when system_settings has no usable value.
const (
	DefaultTargetGoal       = 12
	DefaultSubmissionsLimit = 10

	activityWindowDays     = 7
	userActivityWindowDays = 14
)

// StatsResources is the resource-side read model of the aggregator.
type StatsResources interface {
	CountByStatus(ctx context.Context, s model.Status) (int, error)
	CountByUploader(ctx context.Context, uploaderID uint64, s model.Status) (int, error)
	ApprovedCountsByUploader(ctx context.Context) ([]model.UploaderCount, error)
	UploadsPerDay(ctx context.Context, since time.Time, uploaderID uint64) ([]model.DayCount, error)
	RecentByUploader(ctx context.Context, uploaderID uint64, limit int) ([]model.Resource, error)
}

// UserCounter counts registered accounts.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// NoticeCounter counts notices posted since a point in time.
type NoticeCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// SettingsReader loads system_settings as a key/value map.
type SettingsReader interface {
	All(ctx context.Context) (map[string]string, error)
}

// Dashboard is the per-user summary shown on the home screen.
type Dashboard struct {
	TotalUsers      int    `json:"totalUsers"`
	TotalResources  int    `json:"totalResources"`
	PendingReview   int    `json:"pendingReview"`
	UserSubmissions int    `json:"userSubmissions"`
	UserApproved    int    `json:"userApproved"`
	Completion      int    `json:"completion"`
	Rank            int    `json:"rank"`
	ClassRank       string `json:"classRank"`
	ApprovalRate    int    `json:"approvalRate"`
}

// Activity is the global upload series plus recent notice count.
type Activity struct {
	Labels        []string `json:"labels"`
	Vals          []int    `json:"vals"`
	UnreadNotices int      `json:"unreadNotices"`
}

// DayPoint is one day of a user's upload series.
type DayPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StatsAggregator derives dashboard figures.  It keeps no state between
// calls; settings are read on every request.
type StatsAggregator struct {
	resources StatsResources
	users     UserCounter
	notices   NoticeCounter
	settings  SettingsReader
	now       func() time.Time
}

func NewStatsAggregator(resources StatsResources, users UserCounter, notices NoticeCounter, settings SettingsReader) *StatsAggregator {
	return &StatsAggregator{
		resources: resources,
		users:     users,
		notices:   notices,
		settings:  settings,
		now:       time.Now,
	}
}

// DashboardStats computes the dashboard for one user.  Any failed read
// fails the whole call.
func (s *StatsAggregator) DashboardStats(ctx context.Context, userID uint64) (Dashboard, error) {
	settings, err := s.settings.All(ctx)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	baseRes := settingInt(settings, model.SettingBaseResourceCount, 0)
	baseReach := settingInt(settings, model.SettingBaseStudentReach, 0)
	goal := settingInt(settings, model.SettingTargetContributionGoal, DefaultTargetGoal)
	if goal <= 0 {
		goal = DefaultTargetGoal
	}

	users, err := s.users.Count(ctx)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	approved, err := s.resources.CountByStatus(ctx, model.StatusApproved)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	pending, err := s.resources.CountByStatus(ctx, model.StatusPending)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	mine, err := s.resources.CountByUploader(ctx, userID, "")
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	mineApproved, err := s.resources.CountByUploader(ctx, userID, model.StatusApproved)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}
	board, err := s.resources.ApprovedCountsByUploader(ctx)
	if err != nil {
		return Dashboard{}, persistence("dashboard stats", err)
	}

	rank := RankOf(board, userID)
	return Dashboard{
		TotalUsers:      users + baseReach,
		TotalResources:  approved + baseRes,
		PendingReview:   pending,
		UserSubmissions: mine,
		UserApproved:    mineApproved,
		Completion:      Completion(mine, goal),
		Rank:            rank,
		ClassRank:       RankLabel(rank, len(board)),
		ApprovalRate:    ApprovalRate(approved, mine, mineApproved),
	}, nil
}

// ActivityStats groups uploads by day for the last week.  Days without
// uploads are omitted.
func (s *StatsAggregator) ActivityStats(ctx context.Context) (Activity, error) {
	now := s.now().UTC()
	days, err := s.resources.UploadsPerDay(ctx, startOfDay(now).AddDate(0, 0, -activityWindowDays), 0)
	if err != nil {
		return Activity{}, persistence("activity stats", err)
	}
	notices, err := s.notices.CountSince(ctx, now.Add(-activityWindowDays*24*time.Hour))
	if err != nil {
		return Activity{}, persistence("activity stats", err)
	}

	out := Activity{Labels: make([]string, 0, len(days)), Vals: make([]int, 0, len(days)), UnreadNotices: notices}
	for _, d := range days {
		out.Labels = append(out.Labels, d.Day.Format("Mon"))
		out.Vals = append(out.Vals, d.Count)
	}
	return out, nil
}

// UserActivityStats is the two-week upload series of one user.
func (s *StatsAggregator) UserActivityStats(ctx context.Context, userID uint64) ([]DayPoint, error) {
	since := startOfDay(s.now().UTC()).AddDate(0, 0, -userActivityWindowDays)
	days, err := s.resources.UploadsPerDay(ctx, since, userID)
	if err != nil {
		return nil, persistence("user activity stats", err)
	}
	out := make([]DayPoint, 0, len(days))
	for _, d := range days {
		out = append(out, DayPoint{Date: d.Day.Format("2006-01-02"), Count: d.Count})
	}
	return out, nil
}

// UserSubmissions lists a user's latest resources in any status.  A
// non-positive limit means DefaultSubmissionsLimit.
func (s *StatsAggregator) UserSubmissions(ctx context.Context, userID uint64, limit int) ([]model.Resource, error) {
	if limit <= 0 {
		limit = DefaultSubmissionsLimit
	}
	list, err := s.resources.RecentByUploader(ctx, userID, limit)
	if err != nil {
		return nil, persistence("user submissions", err)
	}
	return list, nil
}

// Completion is the share of the contribution goal reached, capped at 100.
func Completion(submissions, goal int) int {
	if goal <= 0 {
		goal = DefaultTargetGoal
	}
	return min(int(math.Round(float64(submissions)/float64(goal)*100)), 100)
}

// RankOf returns the 1-based position of userID on the leaderboard, or
// len(board)+1 when the user has no approved uploads.  board must already
// be ordered by count descending.
func RankOf(board []model.UploaderCount, userID uint64) int {
	for i, c := range board {
		if c.UploaderID == userID {
			return i + 1
		}
	}
	return len(board) + 1
}

// RankLabel renders a rank as "Top N%".  The leader is always "Top 1%";
// everyone else gets at least "Top 10%".
func RankLabel(rank, boardLen int) string {
	if rank == 1 {
		return "Top 1%"
	}
	percentile := int(math.Round(float64(boardLen-rank+1) / float64(max(boardLen, 1)) * 100))
	return fmt.Sprintf("Top %d%%", max(10, 100-percentile))
}

// ApprovalRate is the user's approved share of their submissions, or 0
// while nothing at all has been approved.
func ApprovalRate(totalApproved, submissions, approved int) int {
	if totalApproved == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(max(submissions, 1)) * 100))
}

func settingInt(m map[string]string, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
