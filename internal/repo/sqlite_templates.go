package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type SQLiteTemplateRepo struct {
	db *sql.DB
}

func NewSQLiteTemplateRepo(db *sql.DB) *SQLiteTemplateRepo {
	return &SQLiteTemplateRepo{db: db}
}

func (r *SQLiteTemplateRepo) ListActiveByType(ctx context.Context, t model.MessageType) ([]model.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, text, active
		FROM message_templates
		WHERE type = ? AND active = 1
	`, string(t))
	if err != nil {
		return nil, fmt.Errorf("list templates %s: %w", t, err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var tpl model.Template
		var typ string
		var active int
		if err := rows.Scan(&tpl.ID, &typ, &tpl.Text, &active); err != nil {
			return nil, fmt.Errorf("list templates %s: %w", t, err)
		}
		tpl.Type = model.MessageType(typ)
		tpl.Active = active != 0
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (r *SQLiteTemplateRepo) Create(ctx context.Context, tpl model.Template) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_templates (type, text, active)
		VALUES (?, ?, ?)
	`, string(tpl.Type), tpl.Text, boolToInt(tpl.Active))
	if err != nil {
		return 0, fmt.Errorf("create template: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteTemplateRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE message_templates SET active = ? WHERE id = ?
	`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
