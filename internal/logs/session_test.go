package logs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracklist/internal/logs"
)

func TestSessionsSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"tracklist-20261016T120000.log",
		"tracklist-20261015T080000.log",
		"other.log",
	} {
		writeLog(t, filepath.Join(dir, name), "{}\n")
	}
	if err := os.Mkdir(filepath.Join(dir, "tracklist-dir.log"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	sessions, err := logs.Sessions(dir)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	want := []string{
		filepath.Join(dir, "tracklist-20261015T080000.log"),
		filepath.Join(dir, "tracklist-20261016T120000.log"),
	}
	if diff := cmp.Diff(want, sessions); diff != "" {
		t.Fatalf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestSkipsExcluded(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "tracklist-20261015T080000.log")
	newer := filepath.Join(dir, "tracklist-20261016T120000.log")
	writeLog(t, older, "")
	writeLog(t, newer, "")

	path, ok, err := logs.Latest(dir)
	if err != nil || !ok || path != newer {
		t.Fatalf("Latest = %q, %v, %v; want %q", path, ok, err, newer)
	}
	path, ok, err = logs.Latest(dir, newer)
	if err != nil || !ok || path != older {
		t.Fatalf("Latest excluding newest = %q, %v, %v; want %q", path, ok, err, older)
	}
	if _, ok, _ := logs.Latest(dir, newer, older); ok {
		t.Fatal("expected no session when all are excluded")
	}
}

func TestLatestEmptyDir(t *testing.T) {
	if _, ok, err := logs.Latest(filepath.Join(t.TempDir(), "missing")); ok || err != nil {
		t.Fatalf("expected nothing for a missing dir, got ok=%v err=%v", ok, err)
	}
}
