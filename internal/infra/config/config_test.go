package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT", "TELEGRAM_TOKEN",
	"ADMIN_TELEGRAM_ID", "MANAGER_TELEGRAM_ID", "CRON_SPEC_CYCLE_CHECK",
	"CYCLE_CHECK_TIMEOUT", "CYCLE_BATCH_ISOLATE_FAILURES", "MIGRATE_ON_START", "LOCK_FILE",
}

// clearEnv blanks every key Load reads and moves into an empty directory so
// no stray .env file is picked up.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/cycles")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/cycles", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.BotEnabled())
	assert.Zero(t, cfg.AdminTelegramID)
	assert.Zero(t, cfg.ManagerTelegramID)
	assert.Equal(t, "0 * * * *", cfg.CronSpecCycleCheck)
	assert.Equal(t, 5*time.Minute, cfg.CycleCheckTimeout)
	assert.False(t, cfg.IsolateFailures)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, filepath.Join(os.TempDir(), "project-cycles.lock"), cfg.LockFile)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db/cycles")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ADMIN_TELEGRAM_ID", "100")
	t.Setenv("MANAGER_TELEGRAM_ID", "200")
	t.Setenv("CRON_SPEC_CYCLE_CHECK", "*/10 * * * *")
	t.Setenv("CYCLE_CHECK_TIMEOUT", "90s")
	t.Setenv("CYCLE_BATCH_ISOLATE_FAILURES", "true")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("LOCK_FILE", "/var/run/cycles.lock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, int64(100), cfg.AdminTelegramID)
	assert.Equal(t, int64(200), cfg.ManagerTelegramID)
	assert.Equal(t, "*/10 * * * *", cfg.CronSpecCycleCheck)
	assert.Equal(t, 90*time.Second, cfg.CycleCheckTimeout)
	assert.True(t, cfg.IsolateFailures)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, "/var/run/cycles.lock", cfg.LockFile)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database url", map[string]string{}, "DATABASE_URL is not set"},
		{"token without admin", map[string]string{"DATABASE_URL": "x", "TELEGRAM_TOKEN": "t"}, "ADMIN_TELEGRAM_ID is not set"},
		{"bad admin id", map[string]string{"DATABASE_URL": "x", "TELEGRAM_TOKEN": "t", "ADMIN_TELEGRAM_ID": "abc"}, "invalid ADMIN_TELEGRAM_ID"},
		{"bad manager id", map[string]string{"DATABASE_URL": "x", "MANAGER_TELEGRAM_ID": "abc"}, "invalid MANAGER_TELEGRAM_ID"},
		{"bad timeout", map[string]string{"DATABASE_URL": "x", "CYCLE_CHECK_TIMEOUT": "soon"}, "invalid CYCLE_CHECK_TIMEOUT"},
		{"negative timeout", map[string]string{"DATABASE_URL": "x", "CYCLE_CHECK_TIMEOUT": "-1m"}, "must be positive"},
		{"bad bool", map[string]string{"DATABASE_URL": "x", "MIGRATE_ON_START": "maybe"}, "invalid MIGRATE_ON_START"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=warn\n"), 0o600))
	t.Setenv("DATABASE_URL", "postgres://from-env")
	// godotenv only fills unset variables; blank it via Unsetenv after t.Setenv registered the restore.
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}
