package http

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// PprofServer serves the runtime profiler. It is only started when a pprof
// host is configured.
type PprofServer struct {
	host    string
	timeout time.Duration
	server  *http.Server
	log     *log.Logger
}

func NewPprofServer(host string, timeout time.Duration, log *log.Logger) *PprofServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &PprofServer{
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

func (s *PprofServer) Start() error {
	s.log.Info("pprof server starting on ", s.host)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, `pprof server failed`)
	}
	return nil
}

func (s *PprofServer) Stop() error {
	if s.server == nil {
		return errors.New(`pprof server is not initialized`)
	}
	s.log.Info("shutting down pprof server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, `failed to shutdown pprof server`)
	}

	s.log.Info("pprof server exiting")
	return nil
}
