// Package ctxkey defines context keys shared across layers. Using typed
// struct keys avoids collisions with other packages' context values.
package ctxkey

// LoggerKey carries the invocation-enriched *slog.Logger.
type LoggerKey struct{}

// RequestIDKey carries the per-invocation request id.
type RequestIDKey struct{}
