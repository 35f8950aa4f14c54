package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/scholrhub/internal/model"
)

type NoticeRepo struct{ db *sql.DB }

func NewNoticeRepo(db *sql.DB) *NoticeRepo { return &NoticeRepo{db: db} }

// Create inserts a notice and fills in its ID.
func (r *NoticeRepo) Create(ctx context.Context, n *model.Notice) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notices (title, content, created_by, created_at) VALUES (?, ?, ?, ?)",
		n.Title, n.Content, n.CreatedBy, n.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// List returns all notices with author names, newest first.
func (r *NoticeRepo) List(ctx context.Context) ([]model.Notice, error) {
	const q = `SELECT n.id, n.title, n.content, n.created_by, u.name, n.created_at
		FROM notices n JOIN users u ON u.id = n.created_by
		ORDER BY n.created_at DESC, n.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notice{}
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedBy, &n.AuthorName, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Delete removes a notice; ErrNotFound when the id does not exist.
func (r *NoticeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSince counts notices created at or after the given instant.
func (r *NoticeRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notices WHERE created_at >= ?", since.UTC()).Scan(&n)
	return n, err
}
