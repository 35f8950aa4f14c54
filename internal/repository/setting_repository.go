package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/scholrhub/internal/model"
)

// SettingRepo reads and writes system_settings.  Nothing here caches: every
// call goes to the database so admin edits apply to the next request.
type SettingRepo struct{ db *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// All returns every setting keyed by name.
func (r *SettingRepo) All(ctx context.Context) (map[string]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, s := range list {
		out[s.Key] = s.Value
	}
	return out, nil
}

// List returns the settings ordered by key.
func (r *SettingRepo) List(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT setting_key, setting_value FROM system_settings ORDER BY setting_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Setting{}
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert creates or overwrites one setting.
func (r *SettingRepo) Upsert(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_settings (setting_key, setting_value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)`,
		key, value)
	return err
}
