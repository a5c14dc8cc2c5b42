package outreach

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/render"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// Selector picks a template for a patient, avoiding recent repeats, and
// renders it with the patient's attributes.
type Selector struct {
	templates repo.TemplateRepository
	patients  repo.PatientRepository
	tracker   *Tracker

	now     func() time.Time
	randInt func(n int) int
}

func NewSelector(templates repo.TemplateRepository, patients repo.PatientRepository, tracker *Tracker) *Selector {
	return &Selector{
		templates: templates,
		patients:  patients,
		tracker:   tracker,
		now:       time.Now,
		randInt:   rand.Intn,
	}
}

// WithClock overrides the selector's clock and random source (tests).
func (s *Selector) WithClock(now func() time.Time, randInt func(n int) int) *Selector {
	if now != nil {
		s.now = now
	}
	if randInt != nil {
		s.randInt = randInt
	}
	return s
}

// SelectAndRender picks one active template of type t for patient p and
// returns the rendered text. With an empty template pool it falls back
// to a fixed sentence and leaves the repetition memory untouched.
func (s *Selector) SelectAndRender(ctx context.Context, t model.MessageType, p model.Patient) (string, error) {
	pool, err := s.templates.ListActiveByType(ctx, t)
	if err != nil {
		return "", wrapStore(fmt.Errorf("select template: %w", err))
	}

	if len(pool) == 0 {
		return fallbackMessage(t, p), nil
	}

	candidates := make([]model.Template, 0, len(pool))
	for _, tpl := range pool {
		if !s.tracker.Seen(p.ID, tpl.ID) {
			candidates = append(candidates, tpl)
		}
	}

	// Every template already used: forget and allow repeats.
	if len(candidates) == 0 {
		s.tracker.Clear(p.ID)
		candidates = pool
	}

	chosen := candidates[s.randInt(len(candidates))]
	s.tracker.Record(p.ID, chosen.ID)

	return render.Render(chosen.Text, p), nil
}

// PrepareForPatient renders a message of type t for the patient and
// persists it: prepared text, conversation phase, preparation timestamp
// and status message_prepared. Returns repo.ErrNotFound for an unknown
// patient id.
func (s *Selector) PrepareForPatient(ctx context.Context, patientID int64, t model.MessageType) (string, model.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", model.Patient{}, wrapStore(err)
	}

	text, err := s.SelectAndRender(ctx, t, p)
	if err != nil {
		return "", model.Patient{}, err
	}

	if err := s.patients.SavePrepared(ctx, patientID, text, t, s.now()); err != nil {
		return "", model.Patient{}, wrapStore(fmt.Errorf("save prepared message: %w", err))
	}

	return text, p, nil
}

// fallbackMessage is the hard-coded sentence per type used when the
// template pool is empty; the engine never errors on an empty pool.
func fallbackMessage(t model.MessageType, p model.Patient) string {
	date := valueOr(p.AppointmentDate, "data")
	hour := valueOr(p.AppointmentTime, "hora")

	switch t {
	case model.TypeFirstContact:
		return fmt.Sprintf("Olá! Aqui é da clínica. Sua consulta está agendada para %s às %s. Tudo certo?", date, hour)
	case model.TypeConfirmation:
		return fmt.Sprintf("Oi! Confirmando sua consulta para %s às %s. Pode confirmar?", date, hour)
	case model.TypeReminder:
		return fmt.Sprintf("Lembrete: sua consulta é amanhã, %s às %s. Nos vemos lá!", date, hour)
	case model.TypeReschedule:
		return "Entendi que precisa reagendar. Qual data seria melhor para você?"
	default:
		return "Olá! Entrando em contato da clínica."
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
