package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerGroupsAndLastValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo, false))
	logger.With(slog.String("status", "watching")).
		WithGroup("site").
		Info("sent", slog.String("status", "completed"), slog.Int("retries", 1))

	line := buf.String()
	for _, want := range []string{"INFO - sent", "status=watching", "site.status=completed", "site.retries=1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}

	buf.Reset()
	logger.Info("again", slog.String("note", "a"), slog.String("note", "two words"))
	if got := buf.String(); !strings.HasSuffix(got, ` note="two words"`+"\n") || strings.Count(got, "note=") != 1 {
		t.Fatalf("expected one quoted note, got %q", got)
	}
}

func TestConsoleHandlerRepeatsHeaderFieldsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false))
	logger.Debug("probe", slog.String(FieldComponent, "tracker"))
	if got := buf.String(); !strings.Contains(got, "DEBUG [tracker] - probe component=tracker") {
		t.Fatalf("unexpected debug line %q", got)
	}
}
