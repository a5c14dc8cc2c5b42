// Package report builds the daily confirmation report from patient
// statuses and the send ledger.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// Daily summarizes one appointment date.
type Daily struct {
	Date             string  `json:"date"`
	TotalPatients    int     `json:"totalPatients"`
	Confirmed        int     `json:"confirmed"`
	AwaitingReply    int     `json:"awaitingReply"`
	Rescheduled      int     `json:"rescheduled"`
	NoResponse       int     `json:"noResponse"`
	Canceled         int     `json:"canceled"`
	ConfirmationRate float64 `json:"confirmationRate"`
}

type Service struct {
	db       *sql.DB
	patients repo.PatientRepository
	ledger   repo.LedgerRepository
}

func NewService(db *sql.DB, patients repo.PatientRepository, ledger repo.LedgerRepository) *Service {
	return &Service{db: db, patients: patients, ledger: ledger}
}

// GenerateDaily computes the report for one appointment date (YYYY-MM-DD)
// and upserts it into daily_reports.
func (s *Service) GenerateDaily(ctx context.Context, date string) (Daily, error) {
	counts, err := s.patients.CountByStatusForDate(ctx, date)
	if err != nil {
		return Daily{}, fmt.Errorf("generate daily report: %w", err)
	}

	d := Daily{
		Date:          date,
		Confirmed:     counts[model.StatusConfirmed],
		AwaitingReply: counts[model.StatusMessagePrepared] + counts[model.StatusMessageSent],
		Rescheduled:   counts[model.StatusRescheduled],
		NoResponse:    counts[model.StatusNoResponse],
		Canceled:      counts[model.StatusCanceled],
	}
	for _, n := range counts {
		d.TotalPatients += n
	}
	if d.TotalPatients > 0 {
		d.ConfirmationRate = float64(d.Confirmed) / float64(d.TotalPatients) * 100
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_reports
			(date, total_patients, confirmed, awaiting_reply, rescheduled, no_response, canceled, confirmation_rate, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_patients = excluded.total_patients,
			confirmed = excluded.confirmed,
			awaiting_reply = excluded.awaiting_reply,
			rescheduled = excluded.rescheduled,
			no_response = excluded.no_response,
			canceled = excluded.canceled,
			confirmation_rate = excluded.confirmation_rate,
			generated_at = excluded.generated_at
	`, d.Date, d.TotalPatients, d.Confirmed, d.AwaitingReply, d.Rescheduled, d.NoResponse, d.Canceled,
		d.ConfirmationRate, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Daily{}, fmt.Errorf("save daily report: %w", err)
	}

	return d, nil
}

// LedgerStats returns the day's outreach totals grouped by message type.
func (s *Service) LedgerStats(ctx context.Context, date string) ([]repo.TypeStat, error) {
	return s.ledger.StatsForDay(ctx, date)
}
