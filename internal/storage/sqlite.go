package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the single local database file and
// applies connection settings suited to one desktop process: a single
// writer with a busy timeout instead of immediate SQLITE_BUSY failures.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open db: path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open db: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The engine is single-operator; one connection avoids writer
	// contention between the engine and the backup scheduler.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 10000;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open db: %s: %w", pragma, err)
		}
	}

	return db, nil
}

// IsBusy reports whether err looks like transient SQLite contention
// ("database is locked"/"busy"), which callers surface as a retryable
// condition rather than a failure.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}
