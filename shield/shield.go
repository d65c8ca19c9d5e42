// Package shield provides the HTTP middleware stack for the editor API:
// security headers, request body caps, trace-ID injection, and per-IP rate
// limiting backed by a SQLite rules table.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(1 << 20))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(db).Middleware)
//
// Or apply the default API stack in one call:
//
//	for _, mw := range shield.DefaultAPIStack(db) {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for the editor API.
// Ordered: HeadToGet → SecurityHeaders → MaxBody → TraceID → RateLimiter.
// Health checks (/healthz) bypass rate limiting.
func DefaultAPIStack(db *sql.DB) []func(http.Handler) http.Handler {
	rl := NewRateLimiter(db, "/healthz")
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(1 << 20),
		TraceID,
		rl.Middleware,
	}
}
