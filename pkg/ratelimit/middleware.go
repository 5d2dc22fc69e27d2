package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
)

// MiddlewareOption configures the PerIP middleware.
type MiddlewareOption func(*perIPConfig)

type perIPConfig struct {
	trustProxyHeaders bool
}

// TrustProxyHeaders makes PerIP key clients by X-Forwarded-For / X-Real-IP
// instead of the connection address. Enable only behind a proxy that
// overwrites these headers; a directly reachable listener must not trust
// them, since any client could mint a fresh key per request.
func TrustProxyHeaders() MiddlewareOption {
	return func(c *perIPConfig) {
		c.trustProxyHeaders = true
	}
}

// PerIP returns middleware limiting each client IP to the given burst
// capacity and refill rate. Used on the login and callback endpoints so a
// login storm cannot flood the state store or the identity provider.
func PerIP(capacity int, refillRate float64, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var cfg perIPConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	limiter := NewKeyed(capacity, refillRate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, cfg.trustProxyHeaders)
			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests. Please try again later."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP. Proxy headers are consulted only when
// the deployment declared them trustworthy.
func clientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
