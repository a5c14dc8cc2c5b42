package outreach

import (
	"errors"
	"fmt"

	"github.com/pgup-sistemas/Titanium-clinic/internal/storage"
)

// Gate failures are values surfaced to the operator, never panics.
var (
	// ErrConsentMissing denies a send for a patient without recorded
	// consent; the operator may retry with an explicit override.
	ErrConsentMissing = errors.New("paciente sem consentimento registrado")

	// ErrNotPrepared denies a send when no prepared message exists.
	ErrNotPrepared = errors.New("nenhuma mensagem preparada")

	// ErrStoreBusy marks transient database contention; the operator
	// simply retries the action.
	ErrStoreBusy = errors.New("banco de dados ocupado, tente novamente")
)

// LimitError is a daily-cap, per-number or interval denial.
type LimitError struct {
	Scope  string // "daily", "number" or "interval"
	Reason string
}

func (e *LimitError) Error() string { return e.Reason }

// HoursError is an outside-allowed-hours denial.
type HoursError struct {
	Reason string
}

func (e *HoursError) Error() string { return e.Reason }

// wrapStore converts transient contention into ErrStoreBusy and leaves
// everything else untouched.
func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if storage.IsBusy(err) {
		return fmt.Errorf("%w: %v", ErrStoreBusy, err)
	}
	return err
}
