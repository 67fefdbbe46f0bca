package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth guards every route behind a static API key, accepted either as a
// Bearer token or in the X-API-Key header. An empty key disables the check,
// which is the expected setup for localhost-only deployments.
func Auth(apiKey string) Middleware {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := credential(r)
			if got == "" {
				reject(w, http.StatusUnauthorized, "missing authentication token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				reject(w, http.StatusUnauthorized, "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credential pulls the presented key out of the request. X-API-Key wins over
// the Authorization header when both are set.
func credential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
