package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/engine"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/testsupport"
	"tracklist/internal/tracker"
)

type chanSource chan tracker.Playback

func (chanSource) Name() string { return "test" }

func (c chanSource) Watch(context.Context) (<-chan tracker.Playback, error) { return c, nil }

func TestTrackerDrivenEpisodeUpdate(t *testing.T) {
	src := make(chanSource, 1)
	cfgOpts := []testsupport.ConfigOption{testsupport.WithConfig(func(c *config.Config) {
		c.TrackerEnabled = true
		c.TrackerUpdateWait = 0
		c.TrackerInterval = 1
	})}
	f := newFixture(t, cfgOpts, engine.Options{Source: src}, show("55", "Alpha Beta", 2, 12, "watching"))

	var (
		mu       sync.Mutex
		episodes []int
		playing  []bool
	)
	f.eng.Subscribe(signals.EpisodeChanged, func(_ context.Context, ev signals.Event) {
		mu.Lock()
		episodes = append(episodes, ev.Episode)
		mu.Unlock()
	})
	f.eng.Subscribe(signals.Playing, func(_ context.Context, ev signals.Event) {
		mu.Lock()
		playing = append(playing, ev.Playing)
		mu.Unlock()
	})
	f.start(t)

	src <- tracker.Playback{Path: "/v/[grp] Alpha Beta - 03 [x].mkv", Filename: "[grp] Alpha Beta - 03 [x].mkv", State: tracker.StatePlaying}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(episodes) == 1
	})
	if episodes[0] != 3 {
		t.Fatalf("expected episode 3, got %v", episodes)
	}
	queue, err := f.eng.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 1 || queue[0].Action != media.ActionUpdate || *queue[0].Changes.Progress != 3 {
		t.Fatalf("unexpected queue %+v", queue)
	}
	if st, ok := f.eng.TrackerStatus(); !ok || st.State != string(tracker.StateUpdated) {
		t.Fatalf("unexpected tracker status %+v ok=%v", st, ok)
	}

	src <- tracker.Playback{State: tracker.StateStopped}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(playing) == 2
	})
	if !playing[0] || playing[1] {
		t.Fatalf("unexpected playing signals %v", playing)
	}
}

func TestTrackerRefusesSkipThroughEngine(t *testing.T) {
	src := make(chanSource, 1)
	cfgOpts := []testsupport.ConfigOption{testsupport.WithConfig(func(c *config.Config) {
		c.TrackerEnabled = true
		c.TrackerUpdateWait = 0
		c.TrackerInterval = 1
	})}
	f := newFixture(t, cfgOpts, engine.Options{Source: src}, show("55", "Alpha Beta", 2, 12, "watching"))
	f.start(t)

	src <- tracker.Playback{Path: "/v/Alpha Beta - 05.mkv", Filename: "Alpha Beta - 05.mkv", State: tracker.StatePlaying}
	waitFor(t, func() bool {
		st, _ := f.eng.TrackerStatus()
		return st.State == string(tracker.StateRecognized)
	})
	time.Sleep(50 * time.Millisecond)
	if queue, _ := f.eng.GetQueue(); len(queue) != 0 {
		t.Fatalf("skip must not update progress: %+v", queue)
	}
}

func writeVideos(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name), testNow)
	}
}

func TestPlayEpisodeLaunchesPlayer(t *testing.T) {
	var launched []string
	launcher := func(_ context.Context, player, path string) error {
		launched = append(launched, player+" "+path)
		return nil
	}
	f := newFixture(t, nil, engine.Options{Launcher: launcher}, show("1", "Mushishi", 2, 26, "watching"))
	f.start(t)
	videos := f.cfg.SearchDir[0]
	writeVideos(t, filepath.Join(videos, "Mushishi"),
		"[grp] Mushishi - 02 [720p].mkv",
		"[grp] Mushishi - 03-04 [720p].mkv",
		"notes.txt",
	)

	ep, err := f.eng.PlayEpisode(context.Background(), "1", 0)
	if err != nil || ep != 3 {
		t.Fatalf("PlayEpisode = %d, %v", ep, err)
	}
	want := "mpv " + filepath.Join(videos, "Mushishi", "[grp] Mushishi - 03-04 [720p].mkv")
	if len(launched) != 1 || launched[0] != want {
		t.Fatalf("launched %v want %q", launched, want)
	}
	if ep, err := f.eng.PlayEpisode(context.Background(), "1", 4); err != nil || ep != 4 {
		t.Fatalf("PlayEpisode(4) = %d, %v", ep, err)
	}
	if _, err := f.eng.PlayEpisode(context.Background(), "1", 7); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected NotFound for missing file, got %v", err)
	}
	if _, err := f.eng.PlayEpisode(context.Background(), "1", 27); !errors.Is(err, media.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange past total, got %v", err)
	}
}

func TestPlayEpisodeUsesFolderNameWithFullPath(t *testing.T) {
	var launched string
	cfgOpts := []testsupport.ConfigOption{testsupport.WithConfig(func(c *config.Config) { c.LibraryFullPath = true })}
	f := newFixture(t, cfgOpts, engine.Options{Launcher: func(_ context.Context, _ string, path string) error {
		launched = path
		return nil
	}}, show("1", "Planetes", 0, 26, "watching"))
	f.start(t)
	dir := filepath.Join(f.cfg.SearchDir[0], "Planetes")
	writeVideos(t, dir, "Episode 01.mkv")

	if _, err := f.eng.PlayEpisode(context.Background(), "1", 1); err != nil {
		t.Fatalf("PlayEpisode: %v", err)
	}
	if launched != filepath.Join(dir, "Episode 01.mkv") {
		t.Fatalf("unexpected file %q", launched)
	}
}

func TestGetNewEpisodes(t *testing.T) {
	f := startFixture(t, nil,
		show("1", "Mushishi", 2, 26, "watching"),
		show("2", "Planetes", 5, 26, "watching"),
		show("3", "Haibane Renmei", 13, 13, "completed"),
	)
	writeVideos(t, f.cfg.SearchDir[0],
		"Mushishi - 03.mkv",
		"Planetes - 04.mkv",
		"Haibane Renmei - 13.mkv",
	)

	items, err := f.eng.GetNewEpisodes(context.Background())
	if err != nil {
		t.Fatalf("GetNewEpisodes: %v", err)
	}
	if len(items) != 1 || items[0].ID != "1" || !items[0].NewEpisodes {
		t.Fatalf("unexpected new episodes %+v", items)
	}
	if _, err := f.eng.SetEpisode(context.Background(), "1", 3); err != nil {
		t.Fatal(err)
	}
	info, _ := f.eng.GetShowInfo("1")
	if info.NewEpisodes {
		t.Fatal("progress change should clear the new-episode flag")
	}
}

func TestGetNewEpisodesWithoutSearchDir(t *testing.T) {
	f := startFixture(t, nil, show("1", "Mushishi", 2, 26, "watching"))
	if err := os.RemoveAll(f.cfg.SearchDir[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.GetNewEpisodes(context.Background()); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
