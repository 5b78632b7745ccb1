// Package logger configures the process-wide slog JSON logger and carries
// scoped loggers through context.Context, so a store called from a job logs
// with that job's id and runner.
package logger
