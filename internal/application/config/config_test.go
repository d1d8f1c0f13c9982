package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_LOG_LEVEL", "APP_LOG_FILE", "DB_DRIVER", "DB_DSN", "AUDITOR_MODE", "AUDIT_TIMEOUT",
		"AUDIT_MAX_CONCURRENT", "SUBMIT_RATE_PER_MINUTE", "HTTP_APP_PPROF_HOST",
	} {
		t.Setenv(key, "")
	}

	cfg, err := NewAppConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "data/analyses.db", cfg.DB.DSN)
	assert.Equal(t, "browser", cfg.Audit.Mode)
	assert.Equal(t, 60*time.Second, cfg.Audit.Timeout)
	assert.Equal(t, int64(0), cfg.Audit.MaxConcurrent)
	assert.Equal(t, 30, cfg.SubmitRatePerMinute)
	assert.Equal(t, 100, cfg.LogFile.MaxSizeMB)
	assert.Empty(t, cfg.PprofHost)
}

func TestNewAppConfig_Overrides(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "DEBUG")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://a11y@localhost/a11y")
	t.Setenv("AUDITOR_MODE", "static")
	t.Setenv("AUDIT_TIMEOUT", "90s")
	t.Setenv("AUDIT_MAX_CONCURRENT", "4")
	t.Setenv("SUBMIT_RATE_PER_MINUTE", "0")
	t.Setenv("HTTP_APP_METRICS_HOST", "")

	cfg, err := NewAppConfig()
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "static", cfg.Audit.Mode)
	assert.Equal(t, 90*time.Second, cfg.Audit.Timeout)
	assert.Equal(t, int64(4), cfg.Audit.MaxConcurrent)
	assert.Equal(t, 0, cfg.SubmitRatePerMinute)
	assert.Empty(t, cfg.MetricsHost)
}

func TestNewAppConfig_NormalizesDriverAndMode(t *testing.T) {
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("AUDITOR_MODE", "Static")

	cfg, err := NewAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "static", cfg.Audit.Mode)
}

func TestNewAppConfig_CollectsEveryProblem(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "loud")
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("AUDITOR_MODE", "lighthouse")
	t.Setenv("AUDIT_TIMEOUT", "soon")
	t.Setenv("AUDIT_MAX_CONCURRENT", "-1")

	_, err := NewAppConfig()
	require.Error(t, err)
	for _, want := range []string{"log level", "db driver", "auditor mode", "AUDIT_TIMEOUT", "max concurrent"} {
		assert.Contains(t, err.Error(), want)
	}
}
