// Package logging assembles structured slog loggers and formatting helpers used
// across animlab.
//
// It owns the console and JSON handlers, the rotating log file sink, and
// context-aware helpers so request handlers and background jobs tag their log
// lines with request IDs, scene IDs, and job IDs. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
