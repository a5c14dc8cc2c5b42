// Package backup copies the database file to timestamped snapshots and
// prunes old ones.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const filePrefix = "titanium_backup_"

type Manager struct {
	dbPath string
	dir    string
	now    func() time.Time
}

func NewManager(dbPath, dir string) *Manager {
	return &Manager{dbPath: dbPath, dir: dir, now: time.Now}
}

// WithClock overrides the manager's clock (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create copies the database file into the backup directory and returns
// the snapshot path and size.
func (m *Manager) Create() (string, int64, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create backup dir: %w", err)
	}

	name := filePrefix + m.now().Format("20060102_150405") + ".db"
	dest := filepath.Join(m.dir, name)

	size, err := copyFile(m.dbPath, dest)
	if err != nil {
		return "", 0, fmt.Errorf("create backup: %w", err)
	}
	return dest, size, nil
}

// Sweep removes snapshots older than retentionDays and returns how many
// were deleted. Files whose name does not carry a parseable date are
// left alone.
func (m *Manager) Sweep(retentionDays int) (int, error) {
	cutoff := m.now().AddDate(0, 0, -retentionDays)

	matches, err := filepath.Glob(filepath.Join(m.dir, filePrefix+"*.db"))
	if err != nil {
		return 0, fmt.Errorf("sweep backups: %w", err)
	}

	removed := 0
	for _, path := range matches {
		day, ok := snapshotDate(path)
		if !ok {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("sweep backups: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}

// HasBackupFor reports whether a snapshot already exists for the given day.
func (m *Manager) HasBackupFor(day time.Time) bool {
	matches, err := filepath.Glob(filepath.Join(m.dir, filePrefix+day.Format("20060102")+"_*.db"))
	return err == nil && len(matches) > 0
}

func snapshotDate(path string) (time.Time, bool) {
	base := filepath.Base(path)
	base = base[len(filePrefix):]
	if len(base) < 8 {
		return time.Time{}, false
	}
	day, err := time.Parse("20060102", base[:8])
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return n, nil
}
