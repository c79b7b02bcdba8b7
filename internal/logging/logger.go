// Package logging defines the structured-logging interface used across
// chainstash. The wallet session, ledger binding, gateway publisher and
// workflows all receive a Logger instead of reaching for a global.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "published file", "cid", cid, "endpoint", endpoint)
type Logger interface {
	// Debug logs verbose diagnostics (gateway attempts, binding rebuilds).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
