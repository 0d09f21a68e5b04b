package tracker

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"tracklist/internal/media"
	"tracklist/internal/signals"
)

type staticList struct {
	mu       sync.Mutex
	items    map[media.ID]media.Item
	altnames map[media.ID]string
}

func (l *staticList) Get() map[media.ID]media.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[media.ID]media.Item, len(l.items))
	for id, it := range l.items {
		out[id] = it
	}
	return out
}

func (l *staticList) AltNames() map[media.ID]string { return l.altnames }

func (l *staticList) setProgress(id media.ID, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it := l.items[id]
	it.MyProgress = n
	l.items[id] = it
}

type update struct {
	id      media.ID
	episode int
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	tr       *Tracker
	list     *staticList
	clock    *clock
	updates  []update
	playing  []bool
	statuses []signals.TrackerStatus
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, items ...media.Item) *fixture {
	t.Helper()
	f := &fixture{
		list:  &staticList{items: map[media.ID]media.Item{}},
		clock: &clock{now: time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)},
		logs:  &bytes.Buffer{},
	}
	for _, it := range items {
		f.list.items[it.ID] = it
	}
	f.tr = New(Options{
		List: f.list,
		Update: func(_ context.Context, id media.ID, episode int) error {
			f.updates = append(f.updates, update{id, episode})
			f.list.setProgress(id, episode)
			return nil
		},
		Playing: func(_ media.Item, playing bool, _ int) {
			f.playing = append(f.playing, playing)
		},
		StateChanged: func(st signals.TrackerStatus) { f.statuses = append(f.statuses, st) },
		UpdateWait:   120 * time.Second,
		Logger:       slog.New(slog.NewTextHandler(f.logs, nil)),
		Now:          f.clock.Now,
	})
	return f
}

func (f *fixture) play(name string, state PlayState) {
	f.tr.handle(context.Background(), Playback{Path: "/videos/" + name, Filename: name, State: state})
}

func (f *fixture) tick(d time.Duration) {
	f.clock.advance(d)
	f.tr.evaluate(context.Background())
}

func TestTrackerUpdatesAfterDwell(t *testing.T) {
	f := newFixture(t, media.Item{ID: "9", Title: "Show", Total: 12, MyProgress: 2, MyStatus: "watching"})

	f.play("[Grp] Show - 03 [1080p].mkv", StatePlaying)
	if st := f.tr.Status(); st.State != string(StateRecognized) || st.ItemID != "9" || st.Episode != 3 {
		t.Fatalf("unexpected status after open: %+v", st)
	}
	f.tick(60 * time.Second)
	if len(f.updates) != 0 {
		t.Fatalf("updated before the wait elapsed: %+v", f.updates)
	}
	f.tick(61 * time.Second)
	f.tick(30 * time.Second)
	if len(f.updates) != 1 || f.updates[0] != (update{"9", 3}) {
		t.Fatalf("expected exactly one update to 3, got %+v", f.updates)
	}
	if st := f.tr.Status(); st.State != string(StateUpdated) {
		t.Fatalf("expected updated state, got %+v", st)
	}

	f.tr.handle(context.Background(), Playback{State: StateStopped})
	if st := f.tr.Status(); st.State != string(StateNoVideo) {
		t.Fatalf("expected novideo after close, got %+v", st)
	}
	if len(f.playing) != 2 || !f.playing[0] || f.playing[1] {
		t.Fatalf("unexpected playing notifications: %v", f.playing)
	}
}

func TestTrackerRefusesNonConsecutiveEpisode(t *testing.T) {
	f := newFixture(t, media.Item{ID: "9", Title: "Show", Total: 12, MyProgress: 5})

	f.play("Show - 03.mkv", StatePlaying)
	for range 5 {
		f.tick(60 * time.Second)
	}
	if len(f.updates) != 0 {
		t.Fatalf("expected no update, got %+v", f.updates)
	}
	if got := strings.Count(f.logs.String(), "episode is not the next one"); got != 1 {
		t.Fatalf("expected one warning, got %d:\n%s", got, f.logs.String())
	}
}

func TestTrackerPauseFreezesDwell(t *testing.T) {
	f := newFixture(t, media.Item{ID: "9", Title: "Show", MyProgress: 0})

	f.play("Show - 01.mkv", StatePlaying)
	f.tick(100 * time.Second)
	f.play("Show - 01.mkv", StatePaused)
	f.tick(10 * time.Minute)
	if len(f.updates) != 0 {
		t.Fatalf("dwell advanced while paused: %+v", f.updates)
	}
	if st := f.tr.Status(); st.Dwell != 100*time.Second {
		t.Fatalf("expected frozen dwell of 100s, got %v", st.Dwell)
	}
	f.play("Show - 01.mkv", StatePlaying)
	f.tick(25 * time.Second)
	if len(f.updates) != 1 || f.updates[0].episode != 1 {
		t.Fatalf("expected update after resume, got %+v", f.updates)
	}
}

func TestTrackerMultiEpisodeFileUpdatesToLast(t *testing.T) {
	f := newFixture(t, media.Item{ID: "4", Title: "Mushishi", Total: 26, MyProgress: 2})

	f.play("Mushishi - 03-05.mkv", StatePlaying)
	f.tick(121 * time.Second)
	if len(f.updates) != 1 || f.updates[0] != (update{"4", 5}) {
		t.Fatalf("expected update to 5, got %+v", f.updates)
	}
}

func TestTrackerEpisodeChecksAgainstCurrentProgress(t *testing.T) {
	f := newFixture(t, media.Item{ID: "9", Title: "Show", MyProgress: 1})

	f.play("Show - 03.mkv", StatePlaying)
	f.tick(30 * time.Second)
	// Progress changed elsewhere while the file is open.
	f.list.setProgress("9", 2)
	f.tick(30 * time.Second)
	f.tick(121 * time.Second)
	if len(f.updates) != 1 || f.updates[0].episode != 3 {
		t.Fatalf("expected update once progress caught up, got %+v", f.updates)
	}
}

func TestTrackerUnrecognizedFile(t *testing.T) {
	f := newFixture(t, media.Item{ID: "9", Title: "Show"})

	f.play("Something Else Entirely - 01.mkv", StatePlaying)
	f.tick(10 * time.Minute)
	if st := f.tr.Status(); st.State != string(StateUnrecognized) {
		t.Fatalf("expected unrecognized, got %+v", st)
	}
	if len(f.updates) != 0 || len(f.playing) != 0 {
		t.Fatalf("unexpected side effects: %+v %v", f.updates, f.playing)
	}
}

func TestTrackerSwitchingFilesResetsDwell(t *testing.T) {
	f := newFixture(t,
		media.Item{ID: "1", Title: "Alpha", MyProgress: 0},
		media.Item{ID: "2", Title: "Planetes", MyProgress: 0},
	)
	f.play("Alpha - 01.mkv", StatePlaying)
	f.tick(100 * time.Second)
	f.play("Planetes - 01.mkv", StatePlaying)
	f.tick(100 * time.Second)
	if len(f.updates) != 0 {
		t.Fatalf("dwell carried over between files: %+v", f.updates)
	}
	if len(f.playing) != 3 || f.playing[1] {
		t.Fatalf("expected stop of the first file between starts, got %v", f.playing)
	}
}

type chanSource chan Playback

func (chanSource) Name() string { return "chan" }
func (c chanSource) Watch(context.Context) (<-chan Playback, error) {
	return c, nil
}

func TestTrackerRunConsumesSource(t *testing.T) {
	list := &staticList{items: map[media.ID]media.Item{"9": {ID: "9", Title: "Show", MyProgress: 0}}}
	src := make(chanSource)
	updated := make(chan update, 1)
	tr := New(Options{
		Source: src,
		List:   list,
		Update: func(_ context.Context, id media.ID, episode int) error {
			updated <- update{id, episode}
			return nil
		},
		Interval: 5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	src <- Playback{Path: "/v/Show - 01.mkv", Filename: "Show - 01.mkv", State: StatePlaying}
	select {
	case got := <-updated:
		if got != (update{"9", 1}) {
			t.Fatalf("unexpected update %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if st := tr.Status(); st.State != string(StateNoVideo) {
		t.Fatalf("expected novideo after shutdown, got %+v", st)
	}
}
