// Package logger configures structured logging for claimledger.
//
// It builds a *slog.Logger with a JSON or text handler whose level can be
// changed at runtime (SetLevel), and redacts API key secrets and
// secret-looking attributes before they reach the output.
//
// Request-scoped loggers travel in context.Context; L(ctx) returns the
// context logger enriched with the request id.
package logger
