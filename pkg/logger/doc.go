// Package logger builds configured slog loggers and provides typed attribute
// helpers so log fields stay consistent across the shim server.
package logger
