// Package repository contains data access logic separated from HTTP handlers.
// This file holds the queries behind resource submission, moderation and the
// dashboard aggregates.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/scholrhub/internal/model"
)

// ResourceRepo encapsulates all database queries related to resources.
type ResourceRepo struct {
	db *sql.DB
}

func NewResourceRepo(db *sql.DB) *ResourceRepo {
	return &ResourceRepo{db: db}
}

const resourceColumns = `r.id, r.title, r.file_path, r.file_type, r.semester, r.subject_code, r.unit,
	r.professor_name, r.uploaded_by, r.status, r.upload_date`

// Insert stores a new resource and fills in its ID.  UploadDate is written
// as given so callers control the clock.
func (r *ResourceRepo) Insert(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources
		(title, file_path, file_type, semester, subject_code, unit, professor_name, uploaded_by, status, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q,
		res.Title, res.FilePath, res.FileType, res.Semester, res.SubjectCode, res.Unit,
		nullString(res.ProfessorName), res.UploadedBy, string(res.Status), res.UploadDate.UTC())
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID loads one resource with its uploader name.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (model.Resource, error) {
	q := `SELECT ` + resourceColumns + `, u.name
		FROM resources r JOIN users u ON u.id = r.uploaded_by
		WHERE r.id = ?`
	res, err := scanResource(r.db.QueryRowContext(ctx, q, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, ErrNotFound
	}
	return res, err
}

// ListApproved returns approved resources matching the filter, newest first.
func (r *ResourceRepo) ListApproved(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	where := []string{"r.status = ?"}
	args := []any{string(model.StatusApproved)}

	if f.Semester > 0 {
		where = append(where, "r.semester = ?")
		args = append(args, f.Semester)
	}
	if f.SubjectCode != "" {
		where = append(where, "r.subject_code = ?")
		args = append(args, f.SubjectCode)
	}
	if f.Professor != "" {
		where = append(where, "r.professor_name LIKE ?")
		args = append(args, "%"+escapeLike(f.Professor)+"%")
	}

	q := `SELECT ` + resourceColumns + `, u.name
		FROM resources r JOIN users u ON u.id = r.uploaded_by
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY r.upload_date DESC, r.id DESC`
	return r.queryResources(ctx, q, true, args...)
}

// ListPending returns the moderation queue with uploader names, oldest first.
func (r *ResourceRepo) ListPending(ctx context.Context) ([]model.Resource, error) {
	q := `SELECT ` + resourceColumns + `, u.name
		FROM resources r JOIN users u ON u.id = r.uploaded_by
		WHERE r.status = ?
		ORDER BY r.upload_date, r.id`
	return r.queryResources(ctx, q, true, string(model.StatusPending))
}

// RecentByUploader returns a user's latest submissions in any status.
func (r *ResourceRepo) RecentByUploader(ctx context.Context, uploaderID uint64, limit int) ([]model.Resource, error) {
	q := `SELECT ` + resourceColumns + `
		FROM resources r
		WHERE r.uploaded_by = ?
		ORDER BY r.upload_date DESC, r.id DESC
		LIMIT ?`
	return r.queryResources(ctx, q, false, uploaderID, limit)
}

// Approve flips a pending resource to approved.  Missing or already
// approved rows are left alone without error.
func (r *ResourceRepo) Approve(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE resources SET status = ? WHERE id = ? AND status = ?",
		string(model.StatusApproved), id, string(model.StatusPending))
	return err
}

// FilePath returns the stored path of a resource's backing file.
func (r *ResourceRepo) FilePath(ctx context.Context, id uint64) (string, error) {
	var p string
	err := r.db.QueryRowContext(ctx, "SELECT file_path FROM resources WHERE id = ?", id).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return p, err
}

// FilePathsByUploader returns the backing file of every resource a user
// uploaded, in any status.
func (r *ResourceRepo) FilePathsByUploader(ctx context.Context, uploaderID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT file_path FROM resources WHERE uploaded_by = ? ORDER BY id", uploaderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Delete removes a resource row.  Deleting a missing row is not an error.
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
	return err
}

// CountByStatus counts resources in one moderation state.
func (r *ResourceRepo) CountByStatus(ctx context.Context, s model.Status) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources WHERE status = ?", string(s)).Scan(&n)
	return n, err
}

// CountByUploader counts a user's resources; a non-empty status narrows it.
func (r *ResourceRepo) CountByUploader(ctx context.Context, uploaderID uint64, s model.Status) (int, error) {
	q := "SELECT COUNT(*) FROM resources WHERE uploaded_by = ?"
	args := []any{uploaderID}
	if s != "" {
		q += " AND status = ?"
		args = append(args, string(s))
	}
	var n int
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// ApprovedCountsByUploader groups approved resources per uploader.
func (r *ResourceRepo) ApprovedCountsByUploader(ctx context.Context) ([]model.UploaderCount, error) {
	const q = `SELECT uploaded_by, COUNT(*) AS cnt
		FROM resources
		WHERE status = ?
		GROUP BY uploaded_by
		ORDER BY cnt DESC, uploaded_by`
	rows, err := r.db.QueryContext(ctx, q, string(model.StatusApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UploaderCount
	for rows.Next() {
		var c model.UploaderCount
		if err := rows.Scan(&c.UploaderID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UploadsPerDay counts uploads per calendar day since the given instant.
// Only days with at least one upload are returned.  uploaderID of 0 means
// every uploader.
func (r *ResourceRepo) UploadsPerDay(ctx context.Context, since time.Time, uploaderID uint64) ([]model.DayCount, error) {
	q := "SELECT DATE(upload_date) AS day, COUNT(*) FROM resources WHERE upload_date >= ?"
	args := []any{since.UTC()}
	if uploaderID != 0 {
		q += " AND uploaded_by = ?"
		args = append(args, uploaderID)
	}
	q += " GROUP BY DATE(upload_date) ORDER BY day"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DayCount
	for rows.Next() {
		var d model.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *ResourceRepo) queryResources(ctx context.Context, q string, withUploader bool, args ...any) ([]model.Resource, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows, withUploader)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResource(s rowScanner, withUploader bool) (model.Resource, error) {
	var (
		res       model.Resource
		professor sql.NullString
		status    string
	)
	dest := []any{&res.ID, &res.Title, &res.FilePath, &res.FileType, &res.Semester, &res.SubjectCode,
		&res.Unit, &professor, &res.UploadedBy, &status, &res.UploadDate}
	if withUploader {
		dest = append(dest, &res.UploaderName)
	}
	if err := s.Scan(dest...); err != nil {
		return model.Resource{}, err
	}
	res.Status = model.Status(status)
	if professor.Valid {
		p := professor.String
		res.ProfessorName = &p
	}
	return res, nil
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
