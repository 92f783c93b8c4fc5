package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) bool
}

// rateLimitMiddleware limits requests per token subject, falling back to the
// client IP for anonymous requests. Must run after authMiddleware.
// Returns 429 Too Many Requests when the limit is exceeded.
func rateLimitMiddleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if claims, err := GetClaims(r.Context()); err == nil {
		return "sub:" + claims.Subject
	}
	// RealIP has already rewritten RemoteAddr from proxy headers.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

// writeError writes an error envelope outside of huma.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIErrorEnvelope{
		Version: EnvelopeVersion,
		Code:    statusToCode(status),
		Message: message,
	})
}
