package repo

import "context"

// Named system_limits rows read by the outreach gates.
const (
	LimitMaxDailyFirstContacts = "max_daily_first_contacts"
	LimitMinIntervalSeconds    = "min_interval_seconds"
	LimitMaxAttemptsPerPatient = "max_attempts_per_patient"
	LimitHoursStart            = "hours_start"
	LimitHoursEnd              = "hours_end"
)

// Named system_config keys.
const (
	ConfigOpen24h              = "open_24h"
	ConfigConsentPolicyVersion = "consent_policy_version"
	ConfigBackupEnabled        = "backup_enabled"
	ConfigBackupHour           = "backup_hour"
	ConfigBackupRetentionDays  = "backup_retention_days"
)

type SettingsRepository interface {
	// Limit returns the named limit value; found is false when no active
	// row exists, in which case callers fall back to hard-coded defaults.
	Limit(ctx context.Context, name string) (value int, found bool, err error)

	// Limits returns all requested limit rows that exist.
	Limits(ctx context.Context, names ...string) (map[string]int, error)

	SetLimit(ctx context.Context, name string, value int) error

	Config(ctx context.Context, key string) (value string, found bool, err error)
	SetConfig(ctx context.Context, key, value string) error
}
