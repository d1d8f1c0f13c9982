package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"web_accessibility_analyzer/internal/application/config"
	"web_accessibility_analyzer/internal/http"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	logInstance := log.New()
	cfg, err := config.NewAppConfig()
	if err != nil {
		logInstance.WithError(err).Fatal(`Failed to load config`)
		return
	}

	//log level
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logInstance.WithError(err).Fatal(`Failed to parse log level`)
		return
	}

	logInstance.SetFormatter(&log.JSONFormatter{
		TimestampFormat:   time.RFC3339,
		DisableHTMLEscape: true,
		DisableTimestamp:  false,
	})

	logInstance.SetLevel(logLevel)
	if cfg.DebugMode {
		logInstance.SetLevel(log.DebugLevel)
		logInstance.SetReportCaller(true)
	}

	if cfg.LogFile.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile.Path), 0o755); err != nil {
			logInstance.WithError(err).Fatal(`Failed to create log directory`)
			return
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile.Path,
			MaxSize:    cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAge:     cfg.LogFile.MaxAgeDays,
			Compress:   true,
		}
		defer rotator.Close()
		logInstance.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	// Get context
	ctx := context.WithoutCancel(context.Background())

	// Init HTTP
	http.Init(ctx, logInstance, cfg)
}
