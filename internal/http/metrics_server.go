package http

import (
	"context"
	"net/http"
	"time"

	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// MetricsServer exposes the prometheus registry on its own listener so
// scraping never competes with the analysis API.
type MetricsServer struct {
	host    string
	timeout time.Duration
	server  *http.Server
	log     *log.Logger
}

func NewMetricsServer(host string, timeout time.Duration, log *log.Logger) *MetricsServer {
	return newMetricsServer(host, timeout, metrics.MetricsRegister(), log)
}

func newMetricsServer(host string, timeout time.Duration, reg *prometheus.Registry, log *log.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      log,
		ErrorHandling: promhttp.ContinueOnError,
	}))

	return &MetricsServer{
		server: &http.Server{
			Addr:              host,
			Handler:           mux,
			ReadHeaderTimeout: timeout,
		},
		host:    host,
		timeout: timeout,
		log:     log,
	}
}

func (m *MetricsServer) Start() error {
	m.log.Info("metrics server starting on ", m.host)
	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, `metrics server failed`)
	}
	return nil
}

func (m *MetricsServer) Stop() error {
	if m.server == nil {
		return errors.New(`metrics server is not initialized`)
	}
	m.log.Info("shutting down metrics server...")

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, `failed to shutdown metrics server`)
	}

	m.log.Info("metrics server exiting")
	return nil
}
