package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 15 * time.Minute
	limiterCleanupEvery = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmitRateLimiter limits analysis submissions per client IP.
type SubmitRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
	log      *log.Logger
}

// NewSubmitRateLimiter allows perMinute requests per minute per IP, with the
// same burst. Stale entries are dropped until ctx ends.
func NewSubmitRateLimiter(ctx context.Context, perMinute int, logger *log.Logger) *SubmitRateLimiter {
	rl := &SubmitRateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
		log:      logger,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *SubmitRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.getLimiter(ip).Allow() {
			rl.log.WithField(`ip`, ip).Warn(`submission rate limit exceeded`)
			w.Header().Set(`Content-Type`, `application/json`)
			w.Header().Set(`Retry-After`, `60`)
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				`message`: `too many requests`,
				`code`:    http.StatusTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *SubmitRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

func (rl *SubmitRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *SubmitRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if rl.now().Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	// Check X-Forwarded-For for reverse proxy setups
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
