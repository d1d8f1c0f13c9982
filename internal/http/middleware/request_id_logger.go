package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ctxKeyRequestID struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

func RequestIDLoggerMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(`x-request-id`)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(`x-request-id`, reqID)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, reqID)
			srw := &requestIdStatusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			defer func() {
				duration := time.Since(start)
				entry := logger.WithFields(log.Fields{
					`method`:     r.Method,
					`path`:       r.URL.Path,
					`status`:     srw.status,
					`request_id`: reqID,
					`duration`:   duration.String(),
				})

				if rec := recover(); rec != nil {
					// panic: log stack + return JSON error
					entry = entry.WithFields(log.Fields{
						`error`: fmt.Sprintf(`%v`, rec),
						`stack`: string(debug.Stack()),
					})
					entry.Error(`panic recovered`)
					srw.Header().Set(`Content-Type`, `application/json`)
					srw.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(srw).Encode(map[string]string{
						`error`:      `internal server error`,
						`request_id`: reqID,
					})
				} else if srw.status >= 500 {
					entry.Error(`request completed with error status`)
				} else if srw.status >= 400 {
					entry.Warn(`request completed with error status`)
				} else {
					entry.Info(`request completed`)
				}
			}()

			next.ServeHTTP(srw, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures HTTP status codes
type requestIdStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *requestIdStatusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *requestIdStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return hijack(r.ResponseWriter)
}

func (r *requestIdStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
