package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/testsupport"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

var testAccount = media.Account{Username: "ana", Site: "fake"}

type recorder struct {
	bus *signals.Bus
	mu  sync.Mutex
	evs []signals.Event
}

func newRecorder(t *testing.T, bus *signals.Bus) *recorder {
	t.Helper()
	r := &recorder{bus: bus}
	bus.SubscribeAll(func(_ context.Context, ev signals.Event) {
		r.mu.Lock()
		r.evs = append(r.evs, ev)
		r.mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = bus.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

// events waits for delivery and returns every event seen so far.
func (r *recorder) events(t *testing.T) []signals.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.bus.Barrier(ctx); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signals.Event(nil), r.evs...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.evs = nil
	r.mu.Unlock()
}

func names(evs []signals.Event) []signals.Name {
	out := make([]signals.Name, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name
	}
	return out
}

type harness struct {
	cfg  *config.Config
	fake *testsupport.FakeSite
	bus  *signals.Bus
	rec  *recorder
	h    *Handler
}

func newHarness(t *testing.T, cfgOpts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	fake := testsupport.NewFakeSite()
	bus := signals.NewBus()
	hs := &harness{cfg: cfg, fake: fake, bus: bus, rec: newRecorder(t, bus)}
	hs.h = hs.newHandler()
	return hs
}

func (hs *harness) newHandler(opts ...Option) *Handler {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(hs.cfg, testAccount, testsupport.AnimeMediatype(), hs.fake, hs.bus, logging.NewNop(), opts...)
}

func (hs *harness) start(t *testing.T) {
	t.Helper()
	if err := hs.h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = hs.h.Close(context.Background()) })
}

func item(id media.ID, title string, progress, total int) media.Item {
	return media.Item{ID: id, Title: title, Image: "x.png", Total: total, MyProgress: progress, MyStatus: "watching"}
}
