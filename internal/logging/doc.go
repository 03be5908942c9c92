// Package logging assembles structured slog loggers and formatting helpers used
// across the highlighter pipeline.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code tags log lines with the
// channel, recording, stage, and run correlation ID automatically. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
