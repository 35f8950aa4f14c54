package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/repository"
)

var errDB = errors.New("db down")

// memResources is an in-memory ResourceStore and StatsResources.
type memResources struct {
	mu     sync.Mutex
	rows   map[uint64]model.Resource
	nextID uint64
	fail   map[string]error
}

func newMemResources(rows ...model.Resource) *memResources {
	m := &memResources{rows: map[uint64]model.Resource{}, fail: map[string]error{}}
	for _, r := range rows {
		m.rows[r.ID] = r
		m.nextID = max(m.nextID, r.ID)
	}
	return m
}

func (m *memResources) Insert(_ context.Context, res *model.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Insert"]; err != nil {
		return err
	}
	m.nextID++
	res.ID = m.nextID
	m.rows[res.ID] = *res
	return nil
}

func (m *memResources) GetByID(_ context.Context, id uint64) (model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return model.Resource{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memResources) filter(keep func(model.Resource) bool) []model.Resource {
	out := []model.Resource{}
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out
}

func (m *memResources) ListApproved(_ context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["ListApproved"]; err != nil {
		return nil, err
	}
	return m.filter(func(r model.Resource) bool {
		return r.Status == model.StatusApproved &&
			(f.Semester == 0 || r.Semester == f.Semester) &&
			(f.SubjectCode == "" || r.SubjectCode == f.SubjectCode)
	}), nil
}

func (m *memResources) ListPending(_ context.Context) ([]model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(r model.Resource) bool { return r.Status == model.StatusPending }), nil
}

func (m *memResources) Approve(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Approve"]; err != nil {
		return err
	}
	if r, ok := m.rows[id]; ok && r.Status == model.StatusPending {
		r.Status = model.StatusApproved
		m.rows[id] = r
	}
	return nil
}

func (m *memResources) FilePath(_ context.Context, id uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["FilePath"]; err != nil {
		return "", err
	}
	r, ok := m.rows[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r.FilePath, nil
}

func (m *memResources) FilePathsByUploader(_ context.Context, uid uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["FilePathsByUploader"]; err != nil {
		return nil, err
	}
	paths := []string{}
	for _, r := range m.filter(func(r model.Resource) bool { return r.UploadedBy == uid }) {
		paths = append(paths, r.FilePath)
	}
	sort.Strings(paths)
	return paths, nil
}

// cascade drops a user's rows the way the foreign key does.
func (m *memResources) cascade(uid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rows {
		if r.UploadedBy == uid {
			delete(m.rows, id)
		}
	}
}

func (m *memResources) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Delete"]; err != nil {
		return err
	}
	delete(m.rows, id)
	return nil
}

func (m *memResources) CountByStatus(_ context.Context, s model.Status) (int, error) {
	if err := m.fail["CountByStatus"]; err != nil {
		return 0, err
	}
	return len(m.filter(func(r model.Resource) bool { return r.Status == s })), nil
}

func (m *memResources) CountByUploader(_ context.Context, uid uint64, s model.Status) (int, error) {
	return len(m.filter(func(r model.Resource) bool {
		return r.UploadedBy == uid && (s == "" || r.Status == s)
	})), nil
}

func (m *memResources) ApprovedCountsByUploader(_ context.Context) ([]model.UploaderCount, error) {
	counts := map[uint64]int{}
	for _, r := range m.rows {
		if r.Status == model.StatusApproved {
			counts[r.UploadedBy]++
		}
	}
	out := []model.UploaderCount{}
	for id, n := range counts {
		out = append(out, model.UploaderCount{UploaderID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UploaderID < out[j].UploaderID
	})
	return out, nil
}

func (m *memResources) UploadsPerDay(_ context.Context, since time.Time, uid uint64) ([]model.DayCount, error) {
	if err := m.fail["UploadsPerDay"]; err != nil {
		return nil, err
	}
	counts := map[time.Time]int{}
	for _, r := range m.rows {
		if r.UploadDate.Before(since) || (uid != 0 && r.UploadedBy != uid) {
			continue
		}
		counts[startOfDay(r.UploadDate.UTC())]++
	}
	out := []model.DayCount{}
	for d, n := range counts {
		out = append(out, model.DayCount{Day: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (m *memResources) RecentByUploader(_ context.Context, uid uint64, limit int) ([]model.Resource, error) {
	out := m.filter(func(r model.Resource) bool { return r.UploadedBy == uid })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memFiles is an in-memory FileStore.
type memFiles struct {
	files     map[string]bool
	existsErr error
	deleteErr error
	deleted   []string
}

func newMemFiles(paths ...string) *memFiles {
	f := &memFiles{files: map[string]bool{}}
	for _, p := range paths {
		f.files[p] = true
	}
	return f
}

func (f *memFiles) Exists(_ context.Context, path string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.files[path], nil
}

func (f *memFiles) Delete(_ context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, path)
	delete(f.files, path)
	return nil
}

type countingRecorder struct {
	submitted       map[string]int
	moderated       map[string]int
	cleanupFailures int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{submitted: map[string]int{}, moderated: map[string]int{}}
}

func (r *countingRecorder) ResourceSubmitted(s string) { r.submitted[s]++ }
func (r *countingRecorder) ResourceModerated(a string) { r.moderated[a]++ }
func (r *countingRecorder) StorageCleanupFailed()      { r.cleanupFailures++ }

type fixedUsers struct {
	n   int
	err error
}

func (u fixedUsers) Count(context.Context) (int, error) { return u.n, u.err }

type fixedNotices struct {
	n     int
	since time.Time
}

func (n *fixedNotices) CountSince(_ context.Context, since time.Time) (int, error) {
	n.since = since
	return n.n, nil
}

type mapSettings struct {
	m     map[string]string
	err   error
	reads int
}

func (s *mapSettings) All(context.Context) (map[string]string, error) {
	s.reads++
	return s.m, s.err
}
