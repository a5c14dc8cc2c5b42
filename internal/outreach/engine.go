package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// Dispatcher opens a prefilled compose view for the operator. It never
// sends anything itself; a failure means nothing happened.
type Dispatcher interface {
	OpenCompose(ctx context.Context, phone, text string) error
}

// ConsentService is the LGPD consent subsystem consumed by the send gate.
type ConsentService interface {
	HasConsent(ctx context.Context, patientID int64) (bool, error)
	RecordConsent(ctx context.Context, patientID int64, form model.ConsentForm, operatorID int64) error
}

// AuditLog records operator actions; implementations must never fail the
// action being audited.
type AuditLog interface {
	Action(ctx context.Context, operatorID int64, action, table string, recordID int64, details string)
}

// SendCache optionally mirrors hand-offs to a fast store for dashboards.
type SendCache interface {
	StoreSent(ctx context.Context, patientID int64, phone string, sentAt time.Time) error
}

// messageTypeByStatus maps the patient's conversation state to the next
// message type. Unlisted states default to confirmation.
var messageTypeByStatus = map[model.Status]model.MessageType{
	model.StatusPending:         model.TypeFirstContact,
	model.StatusMessagePrepared: model.TypeConfirmation,
	model.StatusMessageSent:     model.TypeConfirmation,
	model.StatusNoResponse:      model.TypeFollowUp,
}

// MessageTypeFor resolves which message type to prepare next for a
// patient in the given state.
func MessageTypeFor(s model.Status) model.MessageType {
	if t, ok := messageTypeByStatus[s]; ok {
		return t
	}
	return model.TypeConfirmation
}

// Engine orchestrates the outreach flow: prepare a message, gate the
// send (consent, daily cap, number cap, hours) and record the outcome.
type Engine struct {
	patients repo.PatientRepository
	history  repo.HistoryRepository
	selector *Selector
	limits   *LimitsController
	hours    *HoursGate
	consent  ConsentService
	dispatch Dispatcher
	audit    AuditLog
	cache    SendCache

	log *slog.Logger
	now func() time.Time
}

func NewEngine(
	patients repo.PatientRepository,
	history repo.HistoryRepository,
	selector *Selector,
	limits *LimitsController,
	hours *HoursGate,
	consent ConsentService,
	dispatch Dispatcher,
	audit AuditLog,
) *Engine {
	return &Engine{
		patients: patients,
		history:  history,
		selector: selector,
		limits:   limits,
		hours:    hours,
		consent:  consent,
		dispatch: dispatch,
		audit:    audit,
		log:      slog.Default(),
		now:      time.Now,
	}
}

// WithCache attaches an optional send cache. Cache failures are logged
// and never fail a send.
func (e *Engine) WithCache(c SendCache) *Engine {
	e.cache = c
	return e
}

// WithClock overrides the engine's clock (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithLogger overrides the engine's logger.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	if l != nil {
		e.log = l
	}
	return e
}

// Prepare selects and renders the next message for the patient, persists
// it and flips the patient to message_prepared. The message type follows
// the patient's current state.
func (e *Engine) Prepare(ctx context.Context, patientID, operatorID int64) (string, error) {
	p, err := e.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", wrapStore(err)
	}

	msgType := MessageTypeFor(p.Status)

	text, _, err := e.selector.PrepareForPatient(ctx, patientID, msgType)
	if err != nil {
		return "", err
	}

	e.audit.Action(ctx, operatorID, "prepare_message", "patients", patientID, string(msgType))
	e.log.Info("message prepared",
		"patient_id", patientID,
		"message_type", string(msgType),
	)

	return text, nil
}

// SendRequest carries one send attempt. ConsentOverride, when set,
// records consent in the given form before the gates run; without it a
// patient lacking consent is denied with ErrConsentMissing.
type SendRequest struct {
	PatientID       int64
	OperatorID      int64
	ConsentOverride *model.ConsentForm
}

// Send re-validates every gate and, on success, hands the prepared text
// to the dispatcher, records the send in the ledger and the history, and
// flips the patient to message_sent. Any gate failure leaves the patient
// and both ledgers untouched so the operator can retry later.
func (e *Engine) Send(ctx context.Context, req SendRequest) error {
	p, err := e.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return wrapStore(err)
	}

	if p.PreparedMessage == nil || *p.PreparedMessage == "" {
		return ErrNotPrepared
	}

	// Gate 1: consent.
	ok, err := e.consent.HasConsent(ctx, req.PatientID)
	if err != nil {
		return wrapStore(err)
	}
	if !ok {
		if req.ConsentOverride == nil {
			return ErrConsentMissing
		}
		if err := e.consent.RecordConsent(ctx, req.PatientID, *req.ConsentOverride, req.OperatorID); err != nil {
			return wrapStore(err)
		}
	}

	msgType := p.ConversationPhase
	if msgType == "" {
		msgType = MessageTypeFor(p.Status)
	}

	// Gate 2: daily cap.
	d, err := e.limits.CheckDailyCap(ctx, msgType)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &LimitError{Scope: "daily", Reason: d.Reason}
	}

	// Gate 3: per-number cap and minimum interval.
	d, err = e.limits.CheckNumberCap(ctx, p.Phone)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &LimitError{Scope: "number", Reason: d.Reason}
	}

	// Gate 4: allowed hours.
	d, err = e.hours.CheckAllowedNow(ctx)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &HoursError{Reason: d.Reason}
	}

	// Hand off to the compose view. A dispatcher failure means nothing
	// was shown to the operator, so nothing is recorded.
	if err := e.dispatch.OpenCompose(ctx, p.Phone, *p.PreparedMessage); err != nil {
		return fmt.Errorf("abrir tela de envio: %w", err)
	}

	now := e.now()

	if err := e.limits.RecordSend(ctx, p.Phone, msgType, req.OperatorID); err != nil {
		return err
	}

	sentAt := now
	if _, err := e.history.Append(ctx, model.HistoryEntry{
		PatientID:   req.PatientID,
		Text:        *p.PreparedMessage,
		MessageType: msgType,
		PreparedAt:  p.PreparedAt,
		SentAt:      &sentAt,
		OperatorID:  req.OperatorID,
		Outcome:     model.OutcomeSent,
	}); err != nil {
		return wrapStore(fmt.Errorf("append history: %w", err))
	}

	if err := e.patients.MarkSent(ctx, req.PatientID, now); err != nil {
		return wrapStore(err)
	}

	e.audit.Action(ctx, req.OperatorID, "send_message", "patients", req.PatientID, string(msgType))
	e.log.Info("message handed off",
		"patient_id", req.PatientID,
		"message_type", string(msgType),
	)

	if e.cache != nil {
		if err := e.cache.StoreSent(ctx, req.PatientID, p.Phone, now); err != nil {
			e.log.Warn("send cache store failed", "error", err)
		}
	}

	return nil
}

// Confirm, MarkNoResponse, Reschedule, Revert and SetStatus are
// operator-driven transitions recording a real-world outcome. They are
// always permitted from any state and consume no limit budget.

func (e *Engine) Confirm(ctx context.Context, patientID, operatorID int64) error {
	return e.setStatus(ctx, patientID, model.StatusConfirmed, operatorID)
}

func (e *Engine) MarkNoResponse(ctx context.Context, patientID, operatorID int64) error {
	return e.setStatus(ctx, patientID, model.StatusNoResponse, operatorID)
}

// Reschedule updates the stored appointment and flips the patient to
// rescheduled.
func (e *Engine) Reschedule(ctx context.Context, patientID int64, date, timeOfDay string, operatorID int64) error {
	if err := e.patients.UpdateAppointment(ctx, patientID, date, timeOfDay, operatorID); err != nil {
		return wrapStore(err)
	}
	return e.setStatus(ctx, patientID, model.StatusRescheduled, operatorID)
}

// Revert returns a rescheduled patient to pending so the outreach cycle
// restarts for the new appointment.
func (e *Engine) Revert(ctx context.Context, patientID, operatorID int64) error {
	return e.setStatus(ctx, patientID, model.StatusPending, operatorID)
}

// SetStatus is the unrestricted operator override; clinics routinely
// correct mistakes, so no transition table is enforced.
func (e *Engine) SetStatus(ctx context.Context, patientID int64, status model.Status, operatorID int64) error {
	return e.setStatus(ctx, patientID, status, operatorID)
}

func (e *Engine) setStatus(ctx context.Context, patientID int64, status model.Status, operatorID int64) error {
	if err := e.patients.UpdateStatus(ctx, patientID, status, operatorID); err != nil {
		return wrapStore(err)
	}
	e.audit.Action(ctx, operatorID, "set_status", "patients", patientID, string(status))
	return nil
}
