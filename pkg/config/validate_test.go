package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func TestAppConfigValidate_Defaults(t *testing.T) {
	cfg := AppConfig{}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	require.NotNil(t, cfg.PerWorkerDelay)
	assert.Equal(t, DefaultPerWorkerDelay, *cfg.PerWorkerDelay)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, int64(DefaultMaxPageSizeBytes), cfg.MaxPageSizeBytes)
	assert.Equal(t, DefaultPDFTimeout, cfg.PDFTimeout)
}

func TestAppConfigValidate_NegativeValues(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		warning string
		check   func(t *testing.T, c AppConfig)
	}{
		{
			name:    "negative timeout",
			cfg:     AppConfig{Timeout: -time.Second},
			warning: "timeout cannot be negative",
			check:   func(t *testing.T, c AppConfig) { assert.Equal(t, DefaultTimeout, c.Timeout) },
		},
		{
			name:    "negative concurrency",
			cfg:     AppConfig{Concurrency: -2},
			warning: "concurrency should be > 0",
			check:   func(t *testing.T, c AppConfig) { assert.Equal(t, DefaultConcurrency, c.Concurrency) },
		},
		{
			name:    "negative delay",
			cfg:     AppConfig{PerWorkerDelay: durationPtr(-time.Millisecond)},
			warning: "per_worker_delay cannot be negative",
			check:   func(t *testing.T, c AppConfig) { assert.Equal(t, DefaultPerWorkerDelay, c.Delay()) },
		},
		{
			name:    "negative page size",
			cfg:     AppConfig{MaxPageSizeBytes: -1},
			warning: "max_page_size_bytes cannot be negative",
			check: func(t *testing.T, c AppConfig) {
				assert.Equal(t, int64(DefaultMaxPageSizeBytes), c.MaxPageSizeBytes)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			warnings, err := cfg.Validate()
			require.NoError(t, err)
			assert.True(t, containsWarning(warnings, tt.warning), "warnings: %v", warnings)
			tt.check(t, cfg)
		})
	}
}

func TestAppConfigValidate_SkipSucceededEnablesLedger(t *testing.T) {
	cfg := AppConfig{SkipSucceeded: true}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.True(t, cfg.EnableLedger)
	assert.True(t, containsWarning(warnings, "skip_succeeded requires the result ledger"))
}

func TestAppConfigValidate_HTTPClientSettings(t *testing.T) {
	cfg := AppConfig{Timeout: 60 * time.Second, Concurrency: 3}
	_, err := cfg.Validate()
	require.NoError(t, err)

	h := cfg.HTTPClientSettings
	assert.Equal(t, 60*time.Second, h.Timeout, "client ceiling is raised to the request timeout")
	assert.Equal(t, 100, h.MaxIdleConns)
	assert.Equal(t, 3, h.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, h.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, h.TLSHandshakeTimeout)
	assert.Equal(t, time.Second, h.ExpectContinueTimeout)
	assert.Equal(t, 15*time.Second, h.DialerTimeout)
	assert.Equal(t, 30*time.Second, h.DialerKeepAlive)
}

func TestAppConfigValidate_TemplateConflict(t *testing.T) {
	cfg := AppConfig{Template: "<p>{{content}}</p>", TemplatePath: "t.html"}
	warnings, _ := cfg.Validate()
	assert.True(t, containsWarning(warnings, "using inline template"))
}
