package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPerWorkerDelay, cfg.Delay())
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultFallbackUserAgent, cfg.FallbackUserAgent)
}

func TestLoad_ParsesValues(t *testing.T) {
	path := writeConfig(t, `
timeout: 5s
concurrency: 3
per_worker_delay: 0s
output_dir: /tmp/out
user_agent: custom-agent
export_csv: true
http_client_settings:
  max_idle_conns: 10
`)
	cfg, warnings, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, time.Duration(0), cfg.Delay(), "explicit zero delay must be kept")
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "custom-agent", cfg.UserAgent)
	assert.Equal(t, DefaultFallbackUserAgent, cfg.FallbackUserAgent)
	assert.True(t, cfg.ExportCSV)
	assert.Equal(t, 10, cfg.HTTPClientSettings.MaxIdleConns)
}

func TestLoad_MalformedValueFallsBackWithWarning(t *testing.T) {
	path := writeConfig(t, `
timeout: soon
concurrency: 4
mystery_key: 1
`)
	cfg, warnings, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, containsWarning(warnings, "invalid value for 'timeout'"))
	assert.True(t, containsWarning(warnings, "unknown config key 'mystery_key'"))
}

func TestLoad_StructurallyInvalidFile(t *testing.T) {
	path := writeConfig(t, "- just\n- a list\n")
	_, _, err := Load(path, testLogger())
	assert.Error(t, err)
}

func TestGetEffectiveMetadataYAMLFilename(t *testing.T) {
	assert.Equal(t, "metadata.yaml", GetEffectiveMetadataYAMLFilename(AppConfig{}))
	assert.Equal(t, "batch.yaml", GetEffectiveMetadataYAMLFilename(AppConfig{MetadataYAMLFilename: "batch.yaml"}))
}

func TestGetEffectiveCSVFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "download_records_20240309_140507.csv", GetEffectiveCSVFilename(AppConfig{}, now))
	assert.Equal(t, "r.csv", GetEffectiveCSVFilename(AppConfig{CSVFilename: "r.csv"}, now))
}

func TestParseCookieString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Credentials
	}{
		{"empty", "", Credentials{}},
		{"no equals", "garbage", Credentials{}},
		{"single", "UserName=alice", Credentials{"UserName": "alice"}},
		{"trims and skips bad segments", " a = 1 ; junk; b=2;", Credentials{"a": "1", "b": "2"}},
		{"value containing equals", "token=x=y", Credentials{"token": "x=y"}},
		{"later duplicate wins", "a=1; a=2", Credentials{"a": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCookieString(tt.raw))
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		creds := LoadCredentials(filepath.Join(t.TempDir(), "cookie.txt"), testLogger())
		assert.Empty(t, creds)
	})
	t.Run("empty path", func(t *testing.T) {
		assert.Empty(t, LoadCredentials("", testLogger()))
	})
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookie.txt")
		require.NoError(t, os.WriteFile(path, []byte("SESSION=abc; uuid_tt_dd=42\n"), 0600))
		creds := LoadCredentials(path, testLogger())
		assert.Equal(t, Credentials{"SESSION": "abc", "uuid_tt_dd": "42"}, creds)
	})
}
