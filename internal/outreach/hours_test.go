package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

func hoursGateAt(t *testing.T, hour int, settings *fakeSettings) *HoursGate {
	t.Helper()
	at := time.Date(2026, 3, 10, hour, 30, 0, 0, time.Local)
	return NewHoursGate(settings).WithClock(fixedClock(at))
}

func TestHoursGate_WindowBoundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := newFakeSettings()
	_ = settings.SetLimit(ctx, repo.LimitHoursStart, 8)
	_ = settings.SetLimit(ctx, repo.LimitHoursEnd, 20)

	cases := []struct {
		hour    int
		allowed bool
	}{
		{7, false},
		{8, true}, // start hour is inclusive
		{13, true},
		{19, true},
		{20, false}, // end hour is exclusive
		{23, false},
	}

	for _, tc := range cases {
		g := hoursGateAt(t, tc.hour, settings)
		d, err := g.CheckAllowedNow(ctx)
		if err != nil {
			t.Fatalf("hour %d: CheckAllowedNow() error: %v", tc.hour, err)
		}
		if d.Allowed != tc.allowed {
			t.Errorf("hour %d: allowed = %v, want %v (%s)", tc.hour, d.Allowed, tc.allowed, d.Reason)
		}
	}
}

func TestHoursGate_Open24hBypassesWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := newFakeSettings()
	_ = settings.SetLimit(ctx, repo.LimitHoursStart, 8)
	_ = settings.SetLimit(ctx, repo.LimitHoursEnd, 20)
	_ = settings.SetConfig(ctx, repo.ConfigOpen24h, "true")

	g := hoursGateAt(t, 3, settings)
	d, err := g.CheckAllowedNow(ctx)
	if err != nil {
		t.Fatalf("CheckAllowedNow() error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected 24h clinic always allowed, got %q", d.Reason)
	}
}

func TestHoursGate_FailsOpenWhenUnconfigured(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// No rows at all.
	g := hoursGateAt(t, 3, newFakeSettings())
	d, err := g.CheckAllowedNow(ctx)
	if err != nil {
		t.Fatalf("CheckAllowedNow() error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected fail-open with no configuration, got %q", d.Reason)
	}

	// Only one of the two rows: still fail-open.
	partial := newFakeSettings()
	_ = partial.SetLimit(ctx, repo.LimitHoursStart, 8)

	g = hoursGateAt(t, 3, partial)
	d, err = g.CheckAllowedNow(ctx)
	if err != nil {
		t.Fatalf("CheckAllowedNow() error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected fail-open with partial configuration, got %q", d.Reason)
	}
}
