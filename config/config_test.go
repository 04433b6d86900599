package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/proprun/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RENTCAST_API_KEY", "API_KEY", "LOG_LEVEL", "LOG_FORMAT", "PROPRUN_ADDR"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.Workers)
	assert.Equal(t, 30*time.Second, cfg.EvaluationTimeout())
	assert.Equal(t, domain.DefaultOperatingCostPolicy(), cfg.CostPolicy())
	assert.Equal(t, domain.DefaultAssumptions(), cfg.Assumptions())
	assert.Equal(t, 10, cfg.Defaults.NumListings)
	assert.True(t, cfg.RentCache.Enabled)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.rentcast.io", cfg.RentCast.BaseURL)
	assert.Equal(t, 1.0, cfg.Pipeline.OverFetchFactor)
	assert.Equal(t, "proprun.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 40, cfg.Server.WriteTimeoutSeconds)
	assert.Equal(t, domain.DefaultAssumptions(), cfg.Assumptions())
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff())
}

func TestLoad_ZeroRetryBackoffKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "pipeline:\n  retry_lookup: true\n  retry_backoff_ms: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Pipeline.RetryBackoffMS)
	assert.Equal(t, 0, *cfg.Pipeline.RetryBackoffMS)
	assert.Equal(t, time.Duration(0), cfg.RetryBackoff())
}

func TestLoad_ExplicitZeroCostsKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
costs:
  property_tax_rate: 0
  insurance_rate: 0.005
defaults:
  down_payment_pct: 0
  target_profit: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.CostPolicy()
	assert.Equal(t, 0.0, p.PropertyTaxRate)
	assert.Equal(t, 0.005, p.InsuranceRate)

	a := cfg.Assumptions()
	assert.Equal(t, 0.0, a.DownPaymentPct)
	assert.Equal(t, 0.0, a.TargetProfit)
	assert.Equal(t, 7.0, a.AnnualInterestRate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "fallback")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROPRUN_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fallback", cfg.RentCast.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("RENTCAST_API_KEY", "primary")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.RentCast.APIKey)
}

func TestLoad_APIKeyNotReadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "rentcast:\n  api_key: leaked\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.RentCast.APIKey)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"down payment", "defaults:\n  down_payment_pct: 150\n", "defaults.down_payment_pct"},
		{"negative rate", "costs:\n  insurance_rate: -0.1\n", "costs.insurance_rate"},
		{"over fetch", "pipeline:\n  over_fetch_factor: 0.5\n", "pipeline.over_fetch_factor"},
		{"negative backoff", "pipeline:\n  retry_backoff_ms: -1\n", "pipeline.retry_backoff_ms"},
		{"log level", "log:\n  level: verbose\n", "log.level"},
		{"base url", "rentcast:\n  base_url: not a url\n", "rentcast.base_url"},
		{"addr", "server:\n  addr: nope\n", "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "pipeline: [unclosed"))
	assert.Error(t, err)
}
