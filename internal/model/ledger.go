package model

import "time"

// LedgerEntry is one send_ledger row: the per-phone counter for a single
// day. Day rollover means a new row, never a reset of the old one.
type LedgerEntry struct {
	ID          int64
	Date        string // YYYY-MM-DD
	Phone       string
	MessageType MessageType
	TotalSent   int
	LastSendAt  *time.Time
	OperatorID  int64
}

// HistoryEntry is one send_history row, the audit trail of what was
// actually handed to the operator for each patient.
type HistoryEntry struct {
	ID          int64
	PatientID   int64
	Text        string
	MessageType MessageType
	PreparedAt  *time.Time
	SentAt      *time.Time
	OperatorID  int64
	Outcome     string
}

// History outcomes.
const (
	OutcomePrepared   = "prepared"
	OutcomeSent       = "sent"
	OutcomeAnswered   = "answered"
	OutcomeNoResponse = "no_response"
)
