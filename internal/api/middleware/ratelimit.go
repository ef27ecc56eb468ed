package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
)

// RateLimit rejects requests with 429 once the client IP has spent its
// token bucket. Mount it after chi's RealIP so RemoteAddr is the client.
func RateLimit(limiters *ratelimiter.KeyedLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": domain.ErrRateLimited.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
