// Package logging assembles structured slog loggers and formatting helpers
// used across tracklist.
//
// It owns the console and JSON handlers, the per-session log file under the
// data root with its retention, and the field keys that tag log lines with
// the account, mediatype and item they concern. A no-op logger is provided
// for tests and for wiring code that is handed a nil logger.
package logging
