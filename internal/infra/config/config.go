package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL        string
	LogLevel           string
	Environment        string
	TelegramToken      string // empty disables the admin bot
	AdminTelegramID    int64
	ManagerTelegramID  int64 // receives cycle announcements, 0 disables them
	CronSpecCycleCheck string
	CycleCheckTimeout  time.Duration
	IsolateFailures    bool // keep a batch going past failed projects
	MigrateOnStart     bool
	LockFile           string
}

// BotEnabled reports whether the Telegram admin bot should run.
func (c *AppConfig) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	if managerIDStr := os.Getenv("MANAGER_TELEGRAM_ID"); managerIDStr != "" {
		cfg.ManagerTelegramID, err = strconv.ParseInt(managerIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MANAGER_TELEGRAM_ID: %w", err)
		}
	}

	cfg.CronSpecCycleCheck = os.Getenv("CRON_SPEC_CYCLE_CHECK")
	if cfg.CronSpecCycleCheck == "" {
		cfg.CronSpecCycleCheck = "0 * * * *" // Default: top of every hour
	}

	cfg.CycleCheckTimeout = 5 * time.Minute
	if v := os.Getenv("CYCLE_CHECK_TIMEOUT"); v != "" {
		cfg.CycleCheckTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CYCLE_CHECK_TIMEOUT: %w", err)
		}
		if cfg.CycleCheckTimeout <= 0 {
			return nil, fmt.Errorf("CYCLE_CHECK_TIMEOUT must be positive")
		}
	}

	cfg.IsolateFailures, err = envBool("CYCLE_BATCH_ISOLATE_FAILURES", false)
	if err != nil {
		return nil, err
	}

	cfg.MigrateOnStart, err = envBool("MIGRATE_ON_START", true)
	if err != nil {
		return nil, err
	}

	cfg.LockFile = os.Getenv("LOCK_FILE")
	if cfg.LockFile == "" {
		cfg.LockFile = filepath.Join(os.TempDir(), "project-cycles.lock")
	}

	return cfg, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
