package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tracklist/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives human output; nil means stderr. Use io.Discard to
	// silence the console while keeping the file.
	Console io.Writer
	// FilePath, when set, also receives every record as a JSON line.
	FilePath    string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var consoleHandler slog.Handler
	switch format {
	case "json":
		consoleHandler = newJSONHandler(console, levelVar, addSource)
	case "console":
		consoleHandler = newConsoleHandler(console, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if console == io.Discard {
		consoleHandler = nil
	}

	var fileHandler slog.Handler
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		fileHandler = newJSONHandler(file, levelVar, true)
	}

	return slog.New(newTeeHandler(consoleHandler, fileHandler)), nil
}

// SessionLogName returns the file name used for a process started at ts.
func SessionLogName(ts time.Time) string {
	return "tracklist-" + ts.UTC().Format("20060102T150405") + ".log"
}

// NewFromConfig builds the process logger: console output plus one JSON
// session file under logDir. Session files older than the configured
// retention are pruned. It returns the session file path.
func NewFromConfig(cfg config.Logging, logDir string, console io.Writer) (*slog.Logger, string, error) {
	var path string
	if dir := strings.TrimSpace(logDir); dir != "" {
		path = filepath.Join(dir, SessionLogName(time.Now()))
	}
	logger, err := New(Options{
		Level:    cfg.Level,
		Format:   cfg.Format,
		Console:  console,
		FilePath: path,
	})
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		PruneSessions(NewComponentLogger(logger, "logging"), logDir, cfg.RetentionDays, path)
	}
	return logger, path, nil
}

// ForComponent returns a component logger, raising its minimum level when
// levels names one for the component.
func ForComponent(logger *slog.Logger, component string, levels map[string]string) *slog.Logger {
	out := NewComponentLogger(logger, component)
	raw, ok := levels[component]
	if !ok {
		return out
	}
	level, err := parseLevel(raw)
	if err != nil {
		return out
	}
	return WithLevelOverride(out, level)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}
