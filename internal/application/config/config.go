package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"web_accessibility_analyzer/internal/adaptors/auditor"
	"web_accessibility_analyzer/internal/adaptors/store"
	"web_accessibility_analyzer/internal/domain/adaptors"

	"github.com/joho/godotenv"
)

const (
	defaultLogLevel          = "info"
	defaultMetricsHost       = ":9090"
	defaultDBDriver          = "sqlite"
	defaultDBDSN             = "data/analyses.db"
	defaultAuditorMode       = "browser"
	defaultAuditTimeout      = 60 * time.Second
	defaultSubmitRate        = 30
	defaultLogFileMaxSizeMB  = 100
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAgeDays = 30
)

type LogFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type DBConfig struct {
	Driver string
	DSN    string
}

type AuditConfig struct {
	Mode          string
	Timeout       time.Duration
	MaxConcurrent int64
	ChromePath    string
	AxeScriptURL  string
}

type AppConfig struct {
	LogLevel            string
	DebugMode           bool
	LogFile             LogFileConfig
	MetricsHost         string
	PprofHost           string
	DB                  DBConfig
	Audit               AuditConfig
	SubmitRatePerMinute int
}

// LoadEnvFile loads config.env into the environment. A missing file is not
// an error; variables already set win over the file.
func LoadEnvFile() error {
	err := godotenv.Load(`config.env`)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func NewAppConfig() (*AppConfig, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	var errMsg []string
	cfg := AppConfig{}
	cfg.LogLevel = envOr("APP_LOG_LEVEL", defaultLogLevel)
	cfg.DebugMode = os.Getenv("APP_ENABLE_DEBUG") == "true"
	cfg.MetricsHost = envOrDefault("HTTP_APP_METRICS_HOST", defaultMetricsHost)
	cfg.PprofHost = os.Getenv("HTTP_APP_PPROF_HOST")

	cfg.LogFile.Path = os.Getenv("APP_LOG_FILE")
	cfg.LogFile.MaxSizeMB = parseInt("APP_LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSizeMB, &errMsg)
	cfg.LogFile.MaxBackups = parseInt("APP_LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, &errMsg)
	cfg.LogFile.MaxAgeDays = parseInt("APP_LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAgeDays, &errMsg)

	cfg.DB.Driver = envOr("DB_DRIVER", defaultDBDriver)
	cfg.DB.DSN = envOr("DB_DSN", defaultDBDSN)

	cfg.Audit.Mode = envOr("AUDITOR_MODE", defaultAuditorMode)
	cfg.Audit.Timeout = parseDuration("AUDIT_TIMEOUT", defaultAuditTimeout, &errMsg)
	cfg.Audit.MaxConcurrent = int64(parseInt("AUDIT_MAX_CONCURRENT", 0, &errMsg))
	cfg.Audit.ChromePath = os.Getenv("AUDIT_CHROME_PATH")
	cfg.Audit.AxeScriptURL = os.Getenv("AUDIT_AXE_SCRIPT_URL")

	cfg.SubmitRatePerMinute = parseInt("SUBMIT_RATE_PER_MINUTE", defaultSubmitRate, &errMsg)

	errMsg = append(errMsg, validate(&cfg)...)
	if len(errMsg) != 0 {
		return nil, fmt.Errorf(`validation failed: %s`, strings.Join(errMsg, "\n"))
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) []string {
	var errMsg []string
	if _, ok := adaptors.ParseLogLevel(cfg.LogLevel); !ok {
		errMsg = append(errMsg, fmt.Sprintf(`unknown log level %q`, cfg.LogLevel))
	}

	// accept what the adaptors accept and keep the canonical spelling
	if d, err := store.ParseDialect(cfg.DB.Driver); err != nil {
		errMsg = append(errMsg, fmt.Sprintf(`unknown db driver %q`, cfg.DB.Driver))
	} else {
		cfg.DB.Driver = string(d)
	}

	if m, err := auditor.ParseMode(cfg.Audit.Mode); err != nil {
		errMsg = append(errMsg, fmt.Sprintf(`unknown auditor mode %q`, cfg.Audit.Mode))
	} else {
		cfg.Audit.Mode = string(m)
	}

	if cfg.Audit.Timeout <= 0 {
		errMsg = append(errMsg, `audit timeout must be positive`)
	}
	if cfg.Audit.MaxConcurrent < 0 {
		errMsg = append(errMsg, `audit max concurrent must not be negative`)
	}
	if cfg.SubmitRatePerMinute < 0 {
		errMsg = append(errMsg, `submit rate must not be negative`)
	}
	return errMsg
}

// envOr returns the trimmed value of key, or def when it is unset or blank.
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envOrDefault differs from envOr in that an explicitly empty value is kept,
// which is how optional listeners are switched off.
func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func parseInt(key string, def int, errMsg *[]string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errMsg = append(*errMsg, fmt.Sprintf(`%s: invalid number %q`, key, v))
		return def
	}
	return n
}

func parseDuration(key string, def time.Duration, errMsg *[]string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errMsg = append(*errMsg, fmt.Sprintf(`%s: invalid duration format: %v`, key, err))
		return def
	}
	return d
}
