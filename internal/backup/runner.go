package backup

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

const (
	defaultBackupHour    = "23:00"
	defaultRetentionDays = 7
)

// Runner is the scheduler tick that runs the daily snapshot once the
// configured hour has passed. Configuration lives in system_config so
// the operator can change it without a restart.
type Runner struct {
	manager  *Manager
	settings repo.SettingsRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewRunner(manager *Manager, settings repo.SettingsRepository) *Runner {
	return &Runner{
		manager:  manager,
		settings: settings,
		log:      slog.Default(),
		now:      time.Now,
	}
}

// WithClock overrides the runner's clock (tests).
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Tick checks whether a backup is due and runs it. Safe to call from a
// ticker: it does at most one snapshot per day.
func (r *Runner) Tick(ctx context.Context) {
	if enabled, found, err := r.settings.Config(ctx, repo.ConfigBackupEnabled); err != nil {
		r.log.Error("backup config read failed", "error", err)
		return
	} else if found && strings.EqualFold(enabled, "false") {
		return
	}

	now := r.now()
	if now.Before(r.dueAt(ctx, now)) {
		return
	}
	if r.manager.HasBackupFor(now) {
		return
	}

	path, size, err := r.manager.Create()
	if err != nil {
		r.log.Error("backup failed", "error", err)
		return
	}
	r.log.Info("backup created", "path", path, "size_bytes", size)

	retention := defaultRetentionDays
	if raw, found, err := r.settings.Config(ctx, repo.ConfigBackupRetentionDays); err == nil && found {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			retention = v
		}
	}

	removed, err := r.manager.Sweep(retention)
	if err != nil {
		r.log.Error("backup sweep failed", "error", err)
		return
	}
	if removed > 0 {
		r.log.Info("old backups removed", "count", removed)
	}
}

// dueAt resolves today's configured backup time.
func (r *Runner) dueAt(ctx context.Context, now time.Time) time.Time {
	raw := defaultBackupHour
	if v, found, err := r.settings.Config(ctx, repo.ConfigBackupHour); err == nil && found && v != "" {
		raw = v
	}

	parts := strings.SplitN(raw, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		hour = 23
	}
	minute := 0
	if len(parts) == 2 {
		if v, err := strconv.Atoi(parts[1]); err == nil && v >= 0 && v < 60 {
			minute = v
		}
	}

	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
}
