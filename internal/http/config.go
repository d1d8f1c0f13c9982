package http

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"web_accessibility_analyzer/internal/application/config"
)

const defaultPort = "3000"

type HTTPServerConfig struct {
	Host     string
	Timeouts struct {
		Read         time.Duration
		ReadHeader   time.Duration
		Write        time.Duration
		Idle         time.Duration
		ShutdownWait time.Duration
	}
}

func NewHTTPServerConfig() (*HTTPServerConfig, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading config.env file: %w", err)
	}

	var errors []string
	cfg := &HTTPServerConfig{}

	// HTTP_SERVER_HOST takes the full listen address, PORT only the port
	cfg.Host = strings.TrimSpace(os.Getenv("HTTP_SERVER_HOST"))
	if cfg.Host == "" {
		port := strings.TrimSpace(os.Getenv("PORT"))
		if port == "" {
			port = defaultPort
		}
		cfg.Host = net.JoinHostPort("", port)
	}

	// Helper function to parse duration environment variables
	parseDuration := func(envVar string, def time.Duration) (time.Duration, error) {
		value := os.Getenv(envVar)
		if value == "" {
			return def, nil
		}
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid duration format: %w", envVar, err)
		}
		return duration, nil
	}

	// Parse timeouts
	if dur, err := parseDuration("HTTP_APP_READ_TIMEOUT_DURATION", 15*time.Second); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.Timeouts.Read = dur
	}

	if dur, err := parseDuration("HTTP_APP_READ_HEADER_TIMEOUT_DURATION", 5*time.Second); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.Timeouts.ReadHeader = dur
	}

	if dur, err := parseDuration("HTTP_APP_WRITE_TIMEOUT_DURATION", 15*time.Second); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.Timeouts.Write = dur
	}

	if dur, err := parseDuration("HTTP_APP_IDLE_TIMEOUT_DURATION", 60*time.Second); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.Timeouts.Idle = dur
	}

	if dur, err := parseDuration("HTTP_APP_SHUTDOWN_TIMEOUT_DURATION", 10*time.Second); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.Timeouts.ShutdownWait = dur
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return cfg, nil
}
