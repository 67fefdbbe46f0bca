package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// RateLimit caps each client IP at limit requests per window. Limiter errors
// fall open so a Redis outage degrades to an unthrottled API instead of a
// dead one.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration) Middleware {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), "api:"+clientIP(r), limit, window)
			if err != nil || ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", retryAfter)
			reject(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}

// clientIP resolves the originating address, trusting proxy headers when
// present: first hop of X-Forwarded-For, then X-Real-IP, then the socket
// peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
