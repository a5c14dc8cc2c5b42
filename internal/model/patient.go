package model

import "time"

// Status is the conversation state of a patient's appointment confirmation.
type Status string

const (
	StatusPending         Status = "pending"
	StatusMessagePrepared Status = "message_prepared"
	StatusMessageSent     Status = "message_sent"
	StatusConfirmed       Status = "confirmed"
	StatusRescheduled     Status = "rescheduled"
	StatusCanceled        Status = "canceled"
	StatusNoResponse      Status = "no_response"
)

// Valid reports whether s is one of the known conversation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMessagePrepared, StatusMessageSent,
		StatusConfirmed, StatusRescheduled, StatusCanceled, StatusNoResponse:
		return true
	}
	return false
}

// MessageType categorizes outreach templates by conversation phase.
type MessageType string

const (
	TypeFirstContact MessageType = "first_contact"
	TypeConfirmation MessageType = "confirmation"
	TypeReminder     MessageType = "reminder"
	TypeReschedule   MessageType = "reschedule"
	TypeFollowUp     MessageType = "follow_up"
)

// ConsentForm records how LGPD consent was obtained.
type ConsentForm string

const (
	ConsentVerbal  ConsentForm = "verbal"
	ConsentWritten ConsentForm = "written"
	ConsentDigital ConsentForm = "digital"
)

type Patient struct {
	ID             int64
	Name           string
	Phone          string
	PhoneFormatted string
	Email          *string

	// Appointment details. The date is kept as stored; the renderer
	// understands several encodings.
	AppointmentDate string
	AppointmentTime string
	ConsultType     string
	Provider        string
	Notes           string

	Status            Status
	PreparedMessage   *string
	ConversationPhase MessageType
	PreparedAt        *time.Time
	SentAt            *time.Time

	Consent        bool
	ConsentAt      *time.Time
	ConsentForm    ConsentForm
	ConsentVersion string
	ConsentBy      *int64

	ContactAttempts int
	LastAttemptAt   *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}
