// Package audit persists operator actions to the audit_log table and
// mirrors them to the structured log.
package audit

import (
	"context"
	"database/sql"
	"log/slog"
)

type Logger struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB) *Logger {
	return &Logger{db: db, log: slog.Default()}
}

// Action records one operator action. Audit failures are logged and
// swallowed: auditing must never block the action it describes.
func (l *Logger) Action(ctx context.Context, operatorID int64, action, table string, recordID int64, details string) {
	// NULL for "no operator" so the foreign key on users(id) holds.
	var operator any
	if operatorID > 0 {
		operator = operatorID
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (operator_id, action, table_name, record_id, details)
		VALUES (?, ?, ?, ?, ?)
	`, operator, action, table, recordID, details)
	if err != nil {
		l.log.Error("audit insert failed", "action", action, "error", err)
		return
	}

	l.log.Info("audit",
		"operator_id", operatorID,
		"action", action,
		"table", table,
		"record_id", recordID,
	)
}
