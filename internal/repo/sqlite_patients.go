package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type SQLitePatientRepo struct {
	db *sql.DB
}

func NewSQLitePatientRepo(db *sql.DB) *SQLitePatientRepo {
	return &SQLitePatientRepo{db: db}
}

const patientColumns = `
	id, name, phone, phone_formatted, email,
	appointment_date, appointment_time, consult_type, provider, notes,
	status, prepared_message, conversation_phase, prepared_at, sent_at,
	consent, consent_at, consent_by, consent_form, consent_version,
	contact_attempts, last_attempt_at, created_at, updated_at
`

func (r *SQLitePatientRepo) Create(ctx context.Context, p model.Patient) (int64, error) {
	status := p.Status
	if status == "" {
		status = model.StatusPending
	}
	phase := p.ConversationPhase
	if phase == "" {
		phase = model.TypeFirstContact
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (
			name, phone, phone_formatted, email,
			appointment_date, appointment_time, consult_type, provider, notes,
			status, conversation_phase, consent, consent_form, consent_version,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Name, p.Phone, p.PhoneFormatted, p.Email,
		p.AppointmentDate, p.AppointmentTime, p.ConsultType, p.Provider, p.Notes,
		string(status), string(phase), boolToInt(p.Consent), string(p.ConsentForm), p.ConsentVersion,
		fmtTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("create patient: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLitePatientRepo) GetByID(ctx context.Context, id int64) (model.Patient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)

	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Patient{}, ErrNotFound
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("get patient %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLitePatientRepo) List(ctx context.Context, limit, offset int) ([]model.Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("list patients: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLitePatientRepo) SavePrepared(ctx context.Context, id int64, text string, phase model.MessageType, at time.Time) error {
	return r.update(ctx, id, `
		UPDATE patients
		SET prepared_message = ?,
		    conversation_phase = ?,
		    prepared_at = ?,
		    status = 'message_prepared',
		    updated_at = ?
		WHERE id = ?
	`, text, string(phase), fmtTime(at), fmtTime(at), id)
}

func (r *SQLitePatientRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, id, `
		UPDATE patients
		SET status = 'message_sent',
		    sent_at = ?,
		    contact_attempts = contact_attempts + 1,
		    last_attempt_at = ?,
		    updated_at = ?
		WHERE id = ?
	`, fmtTime(at), fmtTime(at), fmtTime(at), id)
}

func (r *SQLitePatientRepo) UpdateStatus(ctx context.Context, id int64, status model.Status, operatorID int64) error {
	if !status.Valid() {
		return fmt.Errorf("update status: invalid status %q", status)
	}
	return r.update(ctx, id, `
		UPDATE patients
		SET status = ?, updated_at = ?
		WHERE id = ?
	`, string(status), fmtTime(time.Now()), id)
}

func (r *SQLitePatientRepo) UpdateAppointment(ctx context.Context, id int64, date, timeOfDay string, operatorID int64) error {
	return r.update(ctx, id, `
		UPDATE patients
		SET appointment_date = ?, appointment_time = ?, updated_at = ?
		WHERE id = ?
	`, date, timeOfDay, fmtTime(time.Now()), id)
}

func (r *SQLitePatientRepo) SetConsent(ctx context.Context, id int64, form model.ConsentForm, version string, operatorID int64, at time.Time) error {
	return r.update(ctx, id, `
		UPDATE patients
		SET consent = 1,
		    consent_at = ?,
		    consent_by = ?,
		    consent_form = ?,
		    consent_version = ?,
		    updated_at = ?
		WHERE id = ?
	`, fmtTime(at), operatorArg(operatorID), string(form), version, fmtTime(at), id)
}

func (r *SQLitePatientRepo) RevokeConsent(ctx context.Context, id int64) error {
	return r.update(ctx, id, `
		UPDATE patients
		SET consent = 0, updated_at = ?
		WHERE id = ?
	`, fmtTime(time.Now()), id)
}

func (r *SQLitePatientRepo) CountByStatusForDate(ctx context.Context, date string) (map[model.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM patients
		WHERE appointment_date = ?
		GROUP BY status
	`, date)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		out[model.Status(status)] = n
	}
	return out, rows.Err()
}

func (r *SQLitePatientRepo) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patient %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (model.Patient, error) {
	var p model.Patient
	var (
		status, phase, consentForm          string
		email, prepared                     sql.NullString
		preparedAt, sentAt                  sql.NullString
		consentAt, lastAttemptAt, updatedAt sql.NullString
		consentBy                           sql.NullInt64
		consent                             int
		createdAt                           string
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Phone, &p.PhoneFormatted, &email,
		&p.AppointmentDate, &p.AppointmentTime, &p.ConsultType, &p.Provider, &p.Notes,
		&status, &prepared, &phase, &preparedAt, &sentAt,
		&consent, &consentAt, &consentBy, &consentForm, &p.ConsentVersion,
		&p.ContactAttempts, &lastAttemptAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Patient{}, err
	}

	p.Status = model.Status(status)
	p.ConversationPhase = model.MessageType(phase)
	p.ConsentForm = model.ConsentForm(consentForm)
	p.Email = strPtr(email)
	p.PreparedMessage = strPtr(prepared)
	p.PreparedAt = parseTimePtr(preparedAt)
	p.SentAt = parseTimePtr(sentAt)
	p.Consent = consent != 0
	p.ConsentAt = parseTimePtr(consentAt)
	p.ConsentBy = int64Ptr(consentBy)
	p.LastAttemptAt = parseTimePtr(lastAttemptAt)
	if t, err := parseTime(createdAt); err == nil {
		p.CreatedAt = t
	}
	p.UpdatedAt = parseTimePtr(updatedAt)

	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
