package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"web_accessibility_analyzer/internal/pkg/metrics"

	"github.com/go-chi/chi/v5"
)

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srw := &metricsStatusRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(srw, r)
		if srw.status == 0 {
			srw.status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start).Seconds()

		codeStr := strconv.Itoa(srw.status)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, codeStr).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)

		// Increment error counter on 4xx or 5xx
		if srw.status >= 400 {
			metrics.HTTPRequestErrorsTotal.WithLabelValues(r.Method, route, codeStr).Inc()
		}
	})
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *metricsStatusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the recorder.
func (r *metricsStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hijack(r.ResponseWriter)
}

func (r *metricsStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func hijack(w http.ResponseWriter) (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w).Hijack()
}
