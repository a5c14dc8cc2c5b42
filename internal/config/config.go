package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backup   BackupConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type BackupConfig struct {
	Dir string
	// Interval between scheduler checks; the actual backup hour lives in
	// the database so the operator can change it without a restart.
	CheckInterval time.Duration
}

func LoadAll() (*Config, error) {
	var errs []error

	checkSeconds, err := getEnvInt("BACKUP_CHECK_SECONDS", 3600)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", "127.0.0.1:8080"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "data/titanium_clinic.db"),
		},
		Backup: BackupConfig{
			Dir:           getEnv("BACKUP_DIR", "data/backups"),
			CheckInterval: time.Duration(checkSeconds) * time.Second,
		},
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redisCfg

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttlSeconds, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if cfg.Backup.Dir == "" {
		errs = append(errs, errors.New("BACKUP_DIR must not be empty"))
	}
	if cfg.Backup.CheckInterval <= 0 {
		errs = append(errs, errors.New("BACKUP_CHECK_SECONDS must be > 0"))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %q", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
