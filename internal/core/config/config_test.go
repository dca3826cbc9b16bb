package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimal env vars Load needs to succeed.
func setRequiredEnv(t *testing.T) {
	t.Setenv("WEBHOOK_TOKEN", "whk_test")
	t.Setenv("SHIPROCKET_URL", "https://apiv2.shiprocket.test")
	t.Setenv("SHIPROCKET_TOKEN", "sr_test")
}

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("STORE_DRIVER")
	os.Unsetenv("POLL_INTERVAL")
	setRequiredEnv(t)

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, "shipment_status_changed", cfg.Store.NotifyChannel)
	assert.Equal(t, 5*time.Minute, cfg.Sync.PollInterval)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Lookback)
	assert.Equal(t, time.Second, cfg.Sync.InterRequestSleep)
	assert.Equal(t, 3, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.Provider.HTTPTimeout)
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POLL_INTERVAL", "90s")
	t.Setenv("SYNC_BATCH_SIZE", "10")
	t.Setenv("SYNC_LOOKBACK", "1h")
	t.Setenv("INTER_REQUEST_SLEEP", "250ms")
	t.Setenv("MAX_RETRY_ATTEMPTS", "5")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 90*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, time.Hour, cfg.Sync.Lookback)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.InterRequestSleep)
	assert.Equal(t, 5, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, "https://apiv2.shiprocket.test", cfg.Provider.URL)
	assert.Equal(t, "sr_test", cfg.Provider.Token)
}

// TestLoad_MissingRequired verifies that missing required fields fail the load.
func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("WEBHOOK_TOKEN")
	t.Setenv("SHIPROCKET_URL", "https://apiv2.shiprocket.test")
	t.Setenv("SHIPROCKET_TOKEN", "sr_test")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "WEBHOOK_TOKEN")
}

// TestLoad_MySQLRequiresDSN verifies the conditional DSN requirement.
func TestLoad_MySQLRequiresDSN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_DRIVER", "mysql")
	os.Unsetenv("MYSQL_DSN")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "MYSQL_DSN")

	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/store?parseTime=true")
	cfg, err = Load(".")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Store.Driver)
}
