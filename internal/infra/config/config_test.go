package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "travelbooking/internal/domain/pricing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 3, cfg.TxRetryAttempts)
	assert.Equal(t, "0.1", cfg.Fees.ServiceFeeRate.String())
	assert.Equal(t, domainpricing.CleaningPerStay, cfg.Fees.CleaningFeeMode)
	assert.True(t, cfg.Dev())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_URL", "postgres://localhost/travel")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CLEANING_FEE_MODE", "per_night")
	t.Setenv("LONG_STAY_MIN_NIGHTS", "7")
	t.Setenv("LONG_STAY_PERCENT", "10")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, domainpricing.CleaningPerNight, cfg.Fees.CleaningFeeMode)
	assert.Equal(t, 7, cfg.Fees.LongStayMinNights)
}

func TestLoadDotEnvFillsMissingValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=:9999\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HTTP_ADDR") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":   {"STORE_DRIVER": "sqlite"},
		"mongo needs uri":  {"STORE_DRIVER": "mongo"},
		"bad duration":     {"OUTBOX_POLL_INTERVAL": "soon"},
		"bad backoff":      {"RETRY_BACKOFF": "1s,later"},
		"bad decimal":      {"TAX_RATE": "eight"},
		"negative fee":     {"CLEANING_FEE": "-1"},
		"bad cleaning":     {"CLEANING_FEE_MODE": "HOURLY"},
		"no retries":       {"TX_RETRY_ATTEMPTS": "0"},
		"bad bool":         {"S3_USE_SSL": "maybe"},
		"prod needs a key": {"APP_ENV": "prod"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			require.Error(t, err)
		})
	}
}
