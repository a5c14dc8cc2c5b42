package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

// Migrate ensures the schema exists and is upgraded to SchemaVersion,
// seeding the default limit and config rows on first run.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	statements := []struct {
		name string
		ddl  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				full_name TEXT NOT NULL,
				email TEXT UNIQUE,
				role TEXT CHECK(role IN ('admin', 'manager', 'attendant')) NOT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL DEFAULT (datetime('now')),
				last_login_at TEXT NULL
			);
		`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				token TEXT UNIQUE NOT NULL,
				login_at TEXT NOT NULL DEFAULT (datetime('now')),
				logout_at TEXT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				FOREIGN KEY (user_id) REFERENCES users(id)
			);
		`},
		{"patients", `
			CREATE TABLE IF NOT EXISTS patients (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				phone TEXT NOT NULL,
				phone_formatted TEXT,
				email TEXT,

				appointment_date TEXT NOT NULL,
				appointment_time TEXT NOT NULL,
				consult_type TEXT,
				provider TEXT,
				notes TEXT,

				status TEXT CHECK(status IN (
					'pending',
					'message_prepared',
					'message_sent',
					'confirmed',
					'rescheduled',
					'canceled',
					'no_response'
				)) NOT NULL DEFAULT 'pending',

				prepared_message TEXT NULL,
				conversation_phase TEXT NOT NULL DEFAULT 'first_contact',
				prepared_at TEXT NULL,
				sent_at TEXT NULL,

				consent INTEGER NOT NULL DEFAULT 0,
				consent_at TEXT NULL,
				consent_by INTEGER NULL,
				consent_form TEXT CHECK(consent_form IN ('', 'verbal', 'written', 'digital')) DEFAULT '',
				consent_version TEXT DEFAULT '',

				contact_attempts INTEGER NOT NULL DEFAULT 0,
				last_attempt_at TEXT NULL,

				created_at TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at TEXT NULL,
				FOREIGN KEY (consent_by) REFERENCES users(id)
			);
		`},
		{"message_templates", `
			CREATE TABLE IF NOT EXISTS message_templates (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				type TEXT CHECK(type IN (
					'first_contact',
					'confirmation',
					'reminder',
					'reschedule',
					'follow_up'
				)) NOT NULL,
				text TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`},
		{"send_ledger", `
			CREATE TABLE IF NOT EXISTS send_ledger (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date TEXT NOT NULL,
				phone TEXT NOT NULL,
				message_type TEXT NOT NULL,
				total_sent INTEGER NOT NULL DEFAULT 0,
				last_send_at TEXT NULL,
				operator_id INTEGER NULL,
				FOREIGN KEY (operator_id) REFERENCES users(id),
				UNIQUE(date, phone)
			);
		`},
		{"send_history", `
			CREATE TABLE IF NOT EXISTS send_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL,
				rendered_text TEXT NOT NULL,
				message_type TEXT NOT NULL,
				prepared_at TEXT NULL,
				sent_at TEXT NULL,
				operator_id INTEGER NULL,
				outcome TEXT CHECK(outcome IN (
					'prepared',
					'sent',
					'answered',
					'no_response'
				)) NOT NULL,
				FOREIGN KEY (patient_id) REFERENCES patients(id),
				FOREIGN KEY (operator_id) REFERENCES users(id)
			);
		`},
		{"system_limits", `
			CREATE TABLE IF NOT EXISTS system_limits (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT UNIQUE NOT NULL,
				value INTEGER NOT NULL,
				description TEXT,
				active INTEGER NOT NULL DEFAULT 1
			);
		`},
		{"system_config", `
			CREATE TABLE IF NOT EXISTS system_config (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				key TEXT UNIQUE NOT NULL,
				value TEXT,
				updated_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`},
		{"audit_log", `
			CREATE TABLE IF NOT EXISTS audit_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				operator_id INTEGER NULL,
				action TEXT NOT NULL,
				table_name TEXT,
				record_id INTEGER,
				details TEXT,
				at TEXT NOT NULL DEFAULT (datetime('now')),
				FOREIGN KEY (operator_id) REFERENCES users(id)
			);
		`},
		{"daily_reports", `
			CREATE TABLE IF NOT EXISTS daily_reports (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date TEXT UNIQUE NOT NULL,
				total_patients INTEGER NOT NULL DEFAULT 0,
				confirmed INTEGER NOT NULL DEFAULT 0,
				awaiting_reply INTEGER NOT NULL DEFAULT 0,
				rescheduled INTEGER NOT NULL DEFAULT 0,
				no_response INTEGER NOT NULL DEFAULT 0,
				canceled INTEGER NOT NULL DEFAULT 0,
				confirmation_rate REAL NOT NULL DEFAULT 0,
				generated_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`},
		{"idx_patients_phone", `CREATE INDEX IF NOT EXISTS idx_patients_phone ON patients(phone);`},
		{"idx_patients_status", `CREATE INDEX IF NOT EXISTS idx_patients_status ON patients(status);`},
		{"idx_patients_appointment", `CREATE INDEX IF NOT EXISTS idx_patients_appointment ON patients(appointment_date);`},
		{"idx_templates_type", `CREATE INDEX IF NOT EXISTS idx_templates_type ON message_templates(type);`},
		{"idx_history_patient", `CREATE INDEX IF NOT EXISTS idx_history_patient ON send_history(patient_id);`},
		{"idx_audit_at", `CREATE INDEX IF NOT EXISTS idx_audit_at ON audit_log(at);`},
	}

	for _, st := range statements {
		if _, err := tx.Exec(st.ddl); err != nil {
			return fmt.Errorf("migrate: create %s: %w", st.name, err)
		}
	}

	if err := seedDefaults(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}

	return nil
}

// seedDefaults inserts the default outreach limits and config keys.
// INSERT OR IGNORE keeps operator-edited values across re-runs.
func seedDefaults(tx *sql.Tx) error {
	limits := []struct {
		name        string
		value       int
		description string
	}{
		{"max_daily_first_contacts", 30, "Maximum first contacts per day"},
		{"min_interval_seconds", 120, "Minimum interval between sends (2 min)"},
		{"max_attempts_per_patient", 3, "Maximum attempts per phone number per day"},
		{"hours_start", 8, "Sending window start hour"},
		{"hours_end", 20, "Sending window end hour"},
	}
	for _, l := range limits {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO system_limits (name, value, description)
			VALUES (?, ?, ?)
		`, l.name, l.value, l.description)
		if err != nil {
			return fmt.Errorf("migrate: seed limit %s: %w", l.name, err)
		}
	}

	configs := []struct {
		key   string
		value string
	}{
		{"clinic_name", "Clínica Exemplo"},
		{"clinic_phone", ""},
		{"open_24h", "false"},
		{"consent_policy_version", "1.0"},
		{"backup_enabled", "true"},
		{"backup_hour", "23:00"},
		{"backup_retention_days", "7"},
	}
	for _, c := range configs {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO system_config (key, value)
			VALUES (?, ?)
		`, c.key, c.value)
		if err != nil {
			return fmt.Errorf("migrate: seed config %s: %w", c.key, err)
		}
	}

	return nil
}
