package repo

import (
	"context"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
)

// TypeStat aggregates one day's ledger rows for a single message type.
type TypeStat struct {
	MessageType  model.MessageType
	TotalSent    int
	UniquePhones int
}

type LedgerRepository interface {
	// SumForDay sums the day's counts of one message type across all numbers.
	SumForDay(ctx context.Context, date string, t model.MessageType) (int, error)

	// GetForDay returns the day's row for one phone, or nil if none exists.
	GetForDay(ctx context.Context, date, phone string) (*model.LedgerEntry, error)

	// RecordSend upserts the day's row for one phone: increments the count
	// if present, inserts count=1 otherwise. Always stamps last_send_at.
	RecordSend(ctx context.Context, date, phone string, t model.MessageType, at time.Time, operatorID int64) error

	StatsForDay(ctx context.Context, date string) ([]TypeStat, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, e model.HistoryEntry) (int64, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]model.HistoryEntry, error)
}
