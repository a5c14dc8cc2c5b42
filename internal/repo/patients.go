package repo

import (
	"context"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

type PatientRepository interface {
	Create(ctx context.Context, p model.Patient) (int64, error)
	GetByID(ctx context.Context, id int64) (model.Patient, error)
	List(ctx context.Context, limit, offset int) ([]model.Patient, error)

	// SavePrepared persists a rendered message and flips the patient to
	// message_prepared.
	SavePrepared(ctx context.Context, id int64, text string, phase model.MessageType, at time.Time) error

	// MarkSent flips the patient to message_sent, stamps the send time
	// and increments the contact attempt counter.
	MarkSent(ctx context.Context, id int64, at time.Time) error

	UpdateStatus(ctx context.Context, id int64, status model.Status, operatorID int64) error
	UpdateAppointment(ctx context.Context, id int64, date, timeOfDay string, operatorID int64) error

	SetConsent(ctx context.Context, id int64, form model.ConsentForm, version string, operatorID int64, at time.Time) error
	RevokeConsent(ctx context.Context, id int64) error

	// CountByStatusForDate returns per-status patient counts for one
	// appointment date (daily report input).
	CountByStatusForDate(ctx context.Context, date string) (map[model.Status]int, error)
}
