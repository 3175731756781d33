package middleware

import (
	"net/http"
	"strings"

	"github.com/groundline-systems/sourcegate/internal/metrics"
	"github.com/groundline-systems/sourcegate/internal/ratelimit"
)

// RateLimit throttles a route per client IP using the given limiter.
// Limiter errors fail open: an unreachable Redis must not take the
// upload path down with it.
func RateLimit(limiter ratelimit.RateLimiter, route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, err := limiter.Allow(r.Context(), route+":"+clientIP(r))
		if err != nil {
			allowed = true
		}
		if !allowed {
			metrics.RateLimitHits.WithLabelValues(route).Inc()
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
