package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrUSNExists is returned by Create when the login handle is taken.
var ErrUSNExists = errors.New("usn already exists")

const userColumns = "id, usn, name, password, role, semester, created_at"

// NewUser is the input to Create. Password is plain text and hashed here.
type NewUser struct {
	USN      string
	Name     string
	Password string
	Role     model.Role
	Semester *int
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(u.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (usn, name, password, role, semester) VALUES (?,?,?,?,?)",
		normalizeUSN(u.USN), strings.TrimSpace(u.Name), hash, string(u.Role), nullInt(u.Semester))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrUSNExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUSN fetches a user by normalized login handle.
func (r *UserRepo) GetByUSN(ctx context.Context, usn string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE usn=? LIMIT 1", normalizeUSN(usn))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites the editable profile fields. Returns ErrNotFound when
// the id does not exist.
func (r *UserRepo) Update(ctx context.Context, id uint64, name string, role model.Role, semester *int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, role=?, semester=? WHERE id=?",
		strings.TrimSpace(name), string(role), nullInt(semester), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too; confirm the row exists.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user. Their resources, notices and tokens cascade; the
// resources' backing files are left for the caller to remove.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		role     string
		semester sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.USN, &u.Name, &u.PasswordHash, &role, &semester, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if semester.Valid {
		v := int(semester.Int64)
		u.Semester = &v
	}
	return u, nil
}

func normalizeUSN(usn string) string { return strings.ToUpper(strings.TrimSpace(usn)) }

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
