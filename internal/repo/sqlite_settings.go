package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLiteSettingsRepo struct {
	db *sql.DB
}

func NewSQLiteSettingsRepo(db *sql.DB) *SQLiteSettingsRepo {
	return &SQLiteSettingsRepo{db: db}
}

func (r *SQLiteSettingsRepo) Limit(ctx context.Context, name string) (int, bool, error) {
	var value int
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM system_limits
		WHERE name = ? AND active = 1
	`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read limit %s: %w", name, err)
	}
	return value, true, nil
}

func (r *SQLiteSettingsRepo) Limits(ctx context.Context, names ...string) (map[string]int, error) {
	if len(names) == 0 {
		return map[string]int{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, value FROM system_limits
		WHERE active = 1 AND name IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("read limits: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int, len(names))
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("read limits: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (r *SQLiteSettingsRepo) SetLimit(ctx context.Context, name string, value int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_limits (name, value)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("set limit %s: %w", name, err)
	}
	return nil
}

func (r *SQLiteSettingsRepo) Config(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(value, '') FROM system_config WHERE key = ?
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read config %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteSettingsRepo) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_config (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}
