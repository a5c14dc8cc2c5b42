package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

type fakeSettings struct {
	configs map[string]string
}

var _ repo.SettingsRepository = (*fakeSettings)(nil)

func (f *fakeSettings) Limit(ctx context.Context, name string) (int, bool, error) {
	return 0, false, nil
}

func (f *fakeSettings) Limits(ctx context.Context, names ...string) (map[string]int, error) {
	return map[string]int{}, nil
}

func (f *fakeSettings) SetLimit(ctx context.Context, name string, value int) error {
	return nil
}

func (f *fakeSettings) Config(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.configs[key]
	return v, ok, nil
}

func (f *fakeSettings) SetConfig(ctx context.Context, key, value string) error {
	f.configs[key] = value
	return nil
}

func countSnapshots(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.db"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return len(matches)
}

func newTestRunner(t *testing.T, configs map[string]string, at time.Time) (*Runner, string) {
	t.Helper()

	dir := t.TempDir()
	dbPath := writeTestDB(t, dir)
	backupDir := filepath.Join(dir, "backups")

	clock := func() time.Time { return at }
	m := NewManager(dbPath, backupDir).WithClock(clock)
	r := NewRunner(m, &fakeSettings{configs: configs}).WithClock(clock)
	return r, backupDir
}

func TestRunner_Tick_RunsAfterConfiguredHour(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.Local)
	r, dir := newTestRunner(t, map[string]string{
		repo.ConfigBackupEnabled: "true",
		repo.ConfigBackupHour:    "23:00",
	}, at)

	r.Tick(context.Background())

	if got := countSnapshots(t, dir); got != 1 {
		t.Fatalf("snapshots = %d, want 1", got)
	}

	// A second tick on the same day is a no-op.
	r.Tick(context.Background())
	if got := countSnapshots(t, dir); got != 1 {
		t.Fatalf("snapshots after second tick = %d, want 1", got)
	}
}

func TestRunner_Tick_SkipsBeforeHour(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	r, dir := newTestRunner(t, map[string]string{
		repo.ConfigBackupEnabled: "true",
		repo.ConfigBackupHour:    "23:00",
	}, at)

	r.Tick(context.Background())

	if got := countSnapshots(t, dir); got != 0 {
		t.Fatalf("snapshots = %d, want 0 before the configured hour", got)
	}
}

func TestRunner_Tick_DisabledDoesNothing(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.Local)
	r, dir := newTestRunner(t, map[string]string{
		repo.ConfigBackupEnabled: "false",
	}, at)

	r.Tick(context.Background())

	if got := countSnapshots(t, dir); got != 0 {
		t.Fatalf("snapshots = %d, want 0 when disabled", got)
	}
}

func TestRunner_Tick_SweepsOldSnapshots(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.Local)
	r, dir := newTestRunner(t, map[string]string{
		repo.ConfigBackupEnabled:       "true",
		repo.ConfigBackupHour:          "23:00",
		repo.ConfigBackupRetentionDays: "7",
	}, at)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := filepath.Join(dir, filePrefix+"20260101_230000.db")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatalf("write old snapshot: %v", err)
	}

	r.Tick(context.Background())

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old snapshot should have been swept")
	}
	if got := countSnapshots(t, dir); got != 1 {
		t.Fatalf("snapshots = %d, want only today's", got)
	}
}
