package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type SQLiteLedgerRepo struct {
	db *sql.DB
}

func NewSQLiteLedgerRepo(db *sql.DB) *SQLiteLedgerRepo {
	return &SQLiteLedgerRepo{db: db}
}

func (r *SQLiteLedgerRepo) SumForDay(ctx context.Context, date string, t model.MessageType) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_sent), 0)
		FROM send_ledger
		WHERE date = ? AND message_type = ?
	`, date, string(t)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger for %s: %w", date, err)
	}
	return total, nil
}

func (r *SQLiteLedgerRepo) GetForDay(ctx context.Context, date, phone string) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var msgType string
	var lastSend sql.NullString
	var operator sql.NullInt64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, phone, message_type, total_sent, last_send_at, operator_id
		FROM send_ledger
		WHERE date = ? AND phone = ?
	`, date, phone).Scan(&e.ID, &e.Date, &e.Phone, &msgType, &e.TotalSent, &lastSend, &operator)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger %s/%s: %w", date, phone, err)
	}

	e.MessageType = model.MessageType(msgType)
	e.LastSendAt = parseTimePtr(lastSend)
	if operator.Valid {
		e.OperatorID = operator.Int64
	}
	return &e, nil
}

func (r *SQLiteLedgerRepo) RecordSend(ctx context.Context, date, phone string, t model.MessageType, at time.Time, operatorID int64) error {
	// One row per (date, phone); the UNIQUE constraint turns concurrent
	// inserts into an update of the existing counter.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO send_ledger (date, phone, message_type, total_sent, last_send_at, operator_id)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(date, phone) DO UPDATE SET
			total_sent = total_sent + 1,
			last_send_at = excluded.last_send_at,
			operator_id = excluded.operator_id
	`, date, phone, string(t), fmtTime(at), operatorArg(operatorID))
	if err != nil {
		return fmt.Errorf("record send %s/%s: %w", date, phone, err)
	}
	return nil
}

func (r *SQLiteLedgerRepo) StatsForDay(ctx context.Context, date string) ([]TypeStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_type, SUM(total_sent), COUNT(DISTINCT phone)
		FROM send_ledger
		WHERE date = ?
		GROUP BY message_type
	`, date)
	if err != nil {
		return nil, fmt.Errorf("ledger stats %s: %w", date, err)
	}
	defer rows.Close()

	var out []TypeStat
	for rows.Next() {
		var st TypeStat
		var msgType string
		if err := rows.Scan(&msgType, &st.TotalSent, &st.UniquePhones); err != nil {
			return nil, fmt.Errorf("ledger stats %s: %w", date, err)
		}
		st.MessageType = model.MessageType(msgType)
		out = append(out, st)
	}
	return out, rows.Err()
}

type SQLiteHistoryRepo struct {
	db *sql.DB
}

func NewSQLiteHistoryRepo(db *sql.DB) *SQLiteHistoryRepo {
	return &SQLiteHistoryRepo{db: db}
}

func (r *SQLiteHistoryRepo) Append(ctx context.Context, e model.HistoryEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO send_history (patient_id, rendered_text, message_type, prepared_at, sent_at, operator_id, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.PatientID, e.Text, string(e.MessageType), fmtTimePtr(e.PreparedAt), fmtTimePtr(e.SentAt), operatorArg(e.OperatorID), e.Outcome)
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteHistoryRepo) ListByPatient(ctx context.Context, patientID int64, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, rendered_text, message_type, prepared_at, sent_at, operator_id, outcome
		FROM send_history
		WHERE patient_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history %d: %w", patientID, err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var msgType string
		var preparedAt, sentAt sql.NullString
		var operator sql.NullInt64
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Text, &msgType, &preparedAt, &sentAt, &operator, &e.Outcome); err != nil {
			return nil, fmt.Errorf("list history %d: %w", patientID, err)
		}
		e.MessageType = model.MessageType(msgType)
		e.PreparedAt = parseTimePtr(preparedAt)
		e.SentAt = parseTimePtr(sentAt)
		if operator.Valid {
			e.OperatorID = operator.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
