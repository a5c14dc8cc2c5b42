package outreach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// Default sending window when system_limits carries no hours rows.
const (
	DefaultHoursStart = 8
	DefaultHoursEnd   = 20
)

// HoursGate checks the allowed sending window. It fails open: missing
// configuration must never block outreach on its own.
type HoursGate struct {
	settings repo.SettingsRepository
	now      func() time.Time
}

func NewHoursGate(settings repo.SettingsRepository) *HoursGate {
	return &HoursGate{settings: settings, now: time.Now}
}

// WithClock overrides the gate's clock (tests).
func (g *HoursGate) WithClock(now func() time.Time) *HoursGate {
	g.now = now
	return g
}

// CheckAllowedNow allows iff start <= current hour < end, unless the
// clinic is configured for 24-hour operation.
func (g *HoursGate) CheckAllowedNow(ctx context.Context) (Decision, error) {
	open24h, found, err := g.settings.Config(ctx, repo.ConfigOpen24h)
	if err != nil {
		return Decision{}, wrapStore(err)
	}
	if found && strings.EqualFold(open24h, "true") {
		return Decision{Allowed: true, Reason: "Clínica trabalha 24 horas"}, nil
	}

	limits, err := g.settings.Limits(ctx, repo.LimitHoursStart, repo.LimitHoursEnd)
	if err != nil {
		return Decision{}, wrapStore(err)
	}
	if len(limits) < 2 {
		return Decision{Allowed: true, Reason: "Limites não configurados"}, nil
	}

	start := limits[repo.LimitHoursStart]
	end := limits[repo.LimitHoursEnd]

	hour := g.now().Hour()
	if hour < start || hour >= end {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Envios permitidos apenas entre %dh e %dh", start, end),
		}, nil
	}

	return Decision{Allowed: true, Reason: ""}, nil
}
