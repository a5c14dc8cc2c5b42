package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// Hard-coded fallbacks when system_limits has no row for a knob.
const (
	DefaultMaxDailyContacts      = 30
	DefaultMaxAttemptsPerPatient = 3
	DefaultMinIntervalSeconds    = 120
)

// Decision is the outcome of a pre-send check, with an operator-readable
// reason either way.
type Decision struct {
	Allowed bool
	Reason  string
}

// LimitsController enforces the daily cap, the per-number cap and the
// minimum interval between sends against the persisted ledger. Checking
// and recording are deliberately separate calls: the actual transmission
// happens outside this process (a human presses Enter in the browser),
// so the ledger tracks hand-offs, not deliveries.
type LimitsController struct {
	ledger   repo.LedgerRepository
	settings repo.SettingsRepository
	now      func() time.Time
}

func NewLimitsController(ledger repo.LedgerRepository, settings repo.SettingsRepository) *LimitsController {
	return &LimitsController{
		ledger:   ledger,
		settings: settings,
		now:      time.Now,
	}
}

// WithClock overrides the controller's clock (tests).
func (c *LimitsController) WithClock(now func() time.Time) *LimitsController {
	c.now = now
	return c
}

// CheckDailyCap allows iff today's total for the message type, summed
// across all numbers, is below the configured daily maximum.
func (c *LimitsController) CheckDailyCap(ctx context.Context, t model.MessageType) (Decision, error) {
	max, err := c.limit(ctx, repo.LimitMaxDailyFirstContacts, DefaultMaxDailyContacts)
	if err != nil {
		return Decision{}, err
	}

	total, err := c.ledger.SumForDay(ctx, c.today(), t)
	if err != nil {
		return Decision{}, wrapStore(err)
	}

	if total >= max {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Limite diário atingido (%d/%d). Aguarde até amanhã.", total, max),
		}, nil
	}

	return Decision{
		Allowed: true,
		Reason:  fmt.Sprintf("%d envios restantes hoje", max-total),
	}, nil
}

// CheckNumberCap evaluates both the per-number daily attempt cap and the
// minimum interval since the last send; either failing denies.
func (c *LimitsController) CheckNumberCap(ctx context.Context, phone string) (Decision, error) {
	entry, err := c.ledger.GetForDay(ctx, c.today(), phone)
	if err != nil {
		return Decision{}, wrapStore(err)
	}
	if entry == nil {
		return Decision{Allowed: true, Reason: "Pode enviar"}, nil
	}

	maxAttempts, err := c.limit(ctx, repo.LimitMaxAttemptsPerPatient, DefaultMaxAttemptsPerPatient)
	if err != nil {
		return Decision{}, err
	}

	if entry.TotalSent >= maxAttempts {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Número já contatado %d vezes hoje. Limite: %d", entry.TotalSent, maxAttempts),
		}, nil
	}

	if entry.LastSendAt != nil {
		minInterval, err := c.limit(ctx, repo.LimitMinIntervalSeconds, DefaultMinIntervalSeconds)
		if err != nil {
			return Decision{}, err
		}

		elapsed := c.now().Sub(*entry.LastSendAt)
		if wait := time.Duration(minInterval)*time.Second - elapsed; wait > 0 {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("Aguarde %d segundos para contatar este número novamente", int(wait.Seconds())+1),
			}, nil
		}
	}

	return Decision{Allowed: true, Reason: "Pode enviar"}, nil
}

// RecordSend upserts today's ledger row for the phone. Must be called
// exactly once per hand-off, after all gates have passed.
func (c *LimitsController) RecordSend(ctx context.Context, phone string, t model.MessageType, operatorID int64) error {
	if err := c.ledger.RecordSend(ctx, c.today(), phone, t, c.now(), operatorID); err != nil {
		return wrapStore(err)
	}
	return nil
}

// DayStats returns today's per-type totals and unique phone counts.
func (c *LimitsController) DayStats(ctx context.Context) ([]repo.TypeStat, error) {
	stats, err := c.ledger.StatsForDay(ctx, c.today())
	if err != nil {
		return nil, wrapStore(err)
	}
	return stats, nil
}

func (c *LimitsController) today() string {
	return c.now().Format("2006-01-02")
}

func (c *LimitsController) limit(ctx context.Context, name string, def int) (int, error) {
	v, found, err := c.settings.Limit(ctx, name)
	if err != nil {
		return 0, wrapStore(err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}
