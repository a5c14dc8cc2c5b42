// Package consent implements the LGPD consent bookkeeping consumed by
// the outreach send gate.
package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// AuditLog matches the audit logger; auditing never fails the action.
type AuditLog interface {
	Action(ctx context.Context, operatorID int64, action, table string, recordID int64, details string)
}

type Service struct {
	patients repo.PatientRepository
	settings repo.SettingsRepository
	audit    AuditLog
	now      func() time.Time
}

func NewService(patients repo.PatientRepository, settings repo.SettingsRepository, audit AuditLog) *Service {
	return &Service{
		patients: patients,
		settings: settings,
		audit:    audit,
		now:      time.Now,
	}
}

// HasConsent reports whether the patient has recorded consent.
func (s *Service) HasConsent(ctx context.Context, patientID int64) (bool, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return false, err
	}
	return p.Consent, nil
}

// RecordConsent stamps consent with the current time, the form it was
// obtained in and the active policy version.
func (s *Service) RecordConsent(ctx context.Context, patientID int64, form model.ConsentForm, operatorID int64) error {
	version, found, err := s.settings.Config(ctx, repo.ConfigConsentPolicyVersion)
	if err != nil {
		return fmt.Errorf("read policy version: %w", err)
	}
	if !found || version == "" {
		version = "1.0"
	}

	if err := s.patients.SetConsent(ctx, patientID, form, version, operatorID, s.now()); err != nil {
		return err
	}

	s.audit.Action(ctx, operatorID, "record_consent", "patients", patientID, string(form))
	return nil
}

// RevokeConsent clears the consent flag; the patient receives no further
// outreach until consent is recorded again.
func (s *Service) RevokeConsent(ctx context.Context, patientID, operatorID int64) error {
	if err := s.patients.RevokeConsent(ctx, patientID); err != nil {
		return err
	}
	s.audit.Action(ctx, operatorID, "revoke_consent", "patients", patientID, "")
	return nil
}
