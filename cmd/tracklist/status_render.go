package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"tracklist/internal/engine"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = [...]struct{ label, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// renderStatusLine prefixes message with the bracketed kind, coloured on a
// terminal.
func renderStatusLine(kind statusKind, message string, colorize bool) string {
	if int(kind) < 0 || int(kind) >= len(statusStyles) {
		kind = statusInfo
	}
	style := statusStyles[kind]
	line := "[" + style.label + "] " + message
	if !colorize {
		return line
	}
	return style.color + line + ansiReset
}

func statusKindFor(level engine.Level) statusKind {
	switch level {
	case engine.LevelWarn:
		return statusWarn
	case engine.LevelError, engine.LevelFatal:
		return statusError
	default:
		return statusInfo
	}
}

func shouldColorize(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// statusMessenger prints engine messages as status lines and remembers
// whether a failure was shown.
type statusMessenger struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	failed   bool
}

func newStatusMessenger(out io.Writer) *statusMessenger {
	return &statusMessenger{out: out, colorize: shouldColorize(out)}
}

func (m *statusMessenger) Message(level engine.Level, text string) {
	if level == engine.LevelDebug {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kind := statusKindFor(level)
	if kind == statusWarn || kind == statusError {
		m.failed = true
	}
	fmt.Fprintln(m.out, renderStatusLine(kind, text, m.colorize))
}

// settle marks err as reported when a failure line was already printed.
func (m *statusMessenger) settle(err error) error {
	if err == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return reportedError{err: err}
	}
	return err
}
