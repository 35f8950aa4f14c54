package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/queue"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/service"
	"github.com/iliyamo/scholrhub/internal/utils"
)

var errDB = errors.New("db: connection refused")

func newJSONCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

// ---- users ----

type memUsers struct {
	mu     sync.Mutex
	byID   map[uint64]model.User
	nextID uint64
	err    error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}, nextID: 1} }

func (m *memUsers) add(usn, name, password string, role model.Role) model.User {
	hash, _ := utils.HashPassword(password, bcrypt.MinCost)
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: m.nextID, USN: usn, Name: name, Role: role, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	m.byID[u.ID] = u
	m.nextID++
	return u
}

func (m *memUsers) Create(_ context.Context, nu repository.NewUser, cost int) (uint64, error) {
	if m.err != nil {
		return 0, m.err
	}
	usn := strings.ToUpper(strings.TrimSpace(nu.USN))
	m.mu.Lock()
	for _, u := range m.byID {
		if u.USN == usn {
			m.mu.Unlock()
			return 0, repository.ErrUSNExists
		}
	}
	m.mu.Unlock()
	u := m.add(usn, strings.TrimSpace(nu.Name), nu.Password, nu.Role)
	if nu.Semester != nil {
		m.mu.Lock()
		u.Semester = nu.Semester
		m.byID[u.ID] = u
		m.mu.Unlock()
	}
	return u.ID, nil
}

func (m *memUsers) GetByUSN(_ context.Context, usn string) (model.User, error) {
	if m.err != nil {
		return model.User{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.USN == strings.ToUpper(strings.TrimSpace(usn)) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if m.err != nil {
		return model.User{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) List(context.Context) ([]model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for id := uint64(1); id < m.nextID; id++ {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, name string, role model.Role, semester *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name, u.Role, u.Semester = name, role, semester
	m.byID[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// ---- refresh tokens ----

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]*tokenRow{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[hash]
	if !ok || r.revoked || now.After(r.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return r.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

func (m *memTokens) live(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.userID == userID && !r.revoked {
			n++
		}
	}
	return n
}

// ---- resources ----

type fakeResources struct {
	rows       map[uint64]model.Resource
	submitted  []service.SubmitMeta
	submitErr  error
	listErr    error
	lastFilter model.ResourceFilter
	approved   []uint64
	rejected   []uint64
}

func newFakeResources(rows ...model.Resource) *fakeResources {
	f := &fakeResources{rows: map[uint64]model.Resource{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeResources) Submit(_ context.Context, file service.StoredFile, meta service.SubmitMeta, who service.Actor) (model.Resource, error) {
	f.submitted = append(f.submitted, meta)
	if f.submitErr != nil {
		return model.Resource{}, f.submitErr
	}
	res := model.Resource{
		ID:          uint64(len(f.rows) + 100),
		Title:       meta.Title,
		FilePath:    file.Path,
		FileType:    strings.TrimPrefix(file.Ext, "."),
		Semester:    meta.Semester,
		SubjectCode: meta.SubjectCode,
		Unit:        meta.Unit,
		UploadedBy:  who.ID,
		Status:      service.InitialStatus(who.Role),
	}
	f.rows[res.ID] = res
	return res, nil
}

func (f *fakeResources) Get(_ context.Context, id uint64) (model.Resource, error) {
	r, ok := f.rows[id]
	if !ok {
		return model.Resource{}, service.ErrNotFound
	}
	return r, nil
}

func (f *fakeResources) ListApproved(_ context.Context, filter model.ResourceFilter) ([]model.Resource, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Resource{}
	for _, r := range f.rows {
		if r.Status == model.StatusApproved {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResources) ListPending(context.Context) ([]model.Resource, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Resource{}
	for _, r := range f.rows {
		if r.Status == model.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResources) Approve(_ context.Context, id uint64) error {
	f.approved = append(f.approved, id)
	if r, ok := f.rows[id]; ok {
		r.Status = model.StatusApproved
		f.rows[id] = r
	}
	return nil
}

func (f *fakeResources) Reject(_ context.Context, id uint64) error {
	f.rejected = append(f.rejected, id)
	delete(f.rows, id)
	return nil
}

// ---- files, cache, events ----

type fakeLinker struct{ err error }

func (l fakeLinker) URL(_ context.Context, key string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "/uploads/" + key, nil
}

type fakeIntake struct {
	stored    service.StoredFile
	err       error
	discarded []service.StoredFile
}

func (f *fakeIntake) Accept(context.Context, *multipart.FileHeader) (service.StoredFile, error) {
	return f.stored, f.err
}

func (f *fakeIntake) Discard(_ context.Context, sf service.StoredFile) error {
	f.discarded = append(f.discarded, sf)
	return nil
}

func (f *fakeIntake) MaxBytes() int64   { return 1 << 20 }
func (f *fakeIntake) Allowed() []string { return []string{".pdf"} }

type recordingPurger struct{ namespaces []string }

func (p *recordingPurger) Purge(_ context.Context, ns string) error {
	p.namespaces = append(p.namespaces, ns)
	return nil
}

// fakeUploaders records which files a user delete would take with it.
type fakeUploaders struct {
	files   map[uint64][]string
	removed []string
	err     error
}

func (f *fakeUploaders) DeleteUploader(ctx context.Context, id uint64, deleteUser func(context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	if err := deleteUser(ctx); err != nil {
		return err
	}
	f.removed = append(f.removed, f.files[id]...)
	return nil
}

type recordingPublisher struct{ events []queue.ResourceModeratedEvent }

func (p *recordingPublisher) PublishModerated(_ context.Context, ev queue.ResourceModeratedEvent) error {
	p.events = append(p.events, ev)
	return nil
}

// ---- notices, settings, stats ----

type memNotices struct {
	items []model.Notice
	err   error
}

func (m *memNotices) Create(_ context.Context, n *model.Notice) error {
	if m.err != nil {
		return m.err
	}
	n.ID = uint64(len(m.items) + 1)
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotices) List(context.Context) ([]model.Notice, error) { return m.items, m.err }

func (m *memNotices) Delete(_ context.Context, id uint64) error {
	for i, n := range m.items {
		if n.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memSettings struct{ values map[string]string }

func (m *memSettings) List(context.Context) ([]model.Setting, error) {
	out := []model.Setting{}
	for k, v := range m.values {
		out = append(out, model.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (m *memSettings) Upsert(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

type fakeStats struct {
	dashboardFor uint64
	limit        int
	err          error
}

func (f *fakeStats) DashboardStats(_ context.Context, userID uint64) (service.Dashboard, error) {
	f.dashboardFor = userID
	return service.Dashboard{UserSubmissions: 3, Completion: 25, ClassRank: "Top 1%", Rank: 1}, f.err
}

func (f *fakeStats) ActivityStats(context.Context) (service.Activity, error) {
	return service.Activity{Labels: []string{"Mon"}, Vals: []int{2}, UnreadNotices: 1}, f.err
}

func (f *fakeStats) UserActivityStats(context.Context, uint64) ([]service.DayPoint, error) {
	return []service.DayPoint{{Date: "2026-10-12", Count: 1}}, f.err
}

func (f *fakeStats) UserSubmissions(_ context.Context, _ uint64, limit int) ([]model.Resource, error) {
	f.limit = limit
	return []model.Resource{}, f.err
}

func farFuture() time.Time { return time.Now().Add(24 * time.Hour) }
