// Package middleware is the HTTP middleware the API runs behind: chi's stock
// handlers under names that do not leak chi, plus the access log and panic recovery
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is the standard net/http middleware shape
type Middleware = func(http.Handler) http.Handler

// RequestID reuses an incoming X-Request-Id or mints one
func RequestID() Middleware { return chimw.RequestID }

// RealIP sets RemoteAddr from X-Forwarded-For or X-Real-IP
func RealIP() Middleware { return chimw.RealIP }

func NoCache() Middleware                { return chimw.NoCache }
func StripSlashes() Middleware           { return chimw.StripSlashes }
func Heartbeat(path string) Middleware   { return chimw.Heartbeat(path) }
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// Compress compresses text and JSON responses at level
func Compress(level int) Middleware {
	return chimw.Compress(level, "application/json", "text/plain", "text/html", "text/css", "application/javascript")
}

// ThrottleBacklog lets limit requests run, queues backlog more for up to wait and
// answers the rest with 503
func ThrottleBacklog(limit, backlog int, wait time.Duration) Middleware {
	return chimw.ThrottleBacklog(limit, backlog, wait)
}

// CORS allows origins (any when empty) to call the API with JSON bodies
func CORS(origins []string) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
