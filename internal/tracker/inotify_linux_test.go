//go:build linux

package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInotifySourceReportsOpenAndClose(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Show")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(sub, "Show - 05.mkv")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := (&InotifySource{Dirs: []string{dir}}).Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	f, err := os.Open(video)
	if err != nil {
		t.Fatal(err)
	}
	got := recv(t, events)
	if got.Path != video || got.Filename != "Show - 05.mkv" || got.State != StatePlaying {
		_ = f.Close()
		t.Fatalf("unexpected open event %+v", got)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if got := recv(t, events); got.Active() {
		t.Fatalf("expected stop after close, got %+v", got)
	}
}

func TestInotifySourceWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := (&InotifySource{Dirs: []string{dir}}).Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	sub := filepath.Join(dir, "Later", "Season 1")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(sub, "Later - 01.mkv")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		if f, err := os.Open(video); err == nil {
			_ = f.Close()
		}
		select {
		case pb := <-events:
			if pb.State == StatePlaying && pb.Path == video {
				return
			}
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event from a directory created after Watch")
		}
	}
}

func TestInotifySourceRequiresDirs(t *testing.T) {
	if _, err := (&InotifySource{}).Watch(context.Background()); err == nil {
		t.Fatal("expected error without search directories")
	}
}
