package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/engine"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/testsupport"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

var testAccount = media.Account{Username: "ana", Site: "fake"}

type message struct {
	level engine.Level
	text  string
}

type fixture struct {
	cfg  *config.Config
	fake *testsupport.FakeSite
	eng  *engine.Engine

	mu       sync.Mutex
	events   []signals.Event
	messages []message
}

// newFixture builds an engine over a fake site holding remote. It is not
// started.
func newFixture(t *testing.T, cfgOpts []testsupport.ConfigOption, opts engine.Options, remote ...media.Item) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	f := &fixture{cfg: cfg, fake: testsupport.NewFakeSite()}
	f.fake.SetRemote(remote...)

	opts.Client = f.fake
	opts.Now = func() time.Time { return testNow }
	opts.Messenger = engine.MessengerFunc(func(level engine.Level, text string) {
		f.mu.Lock()
		f.messages = append(f.messages, message{level, text})
		f.mu.Unlock()
	})
	eng, err := engine.New(cfg, testAccount, "", opts)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.SubscribeAll(func(_ context.Context, ev signals.Event) {
		if ev.Name == signals.TrackerState {
			return
		}
		f.mu.Lock()
		f.events = append(f.events, ev)
		f.mu.Unlock()
	})
	f.eng = eng
	return f
}

// startFixture builds and starts an engine; it is unloaded at cleanup.
func startFixture(t *testing.T, cfgOpts []testsupport.ConfigOption, remote ...media.Item) *fixture {
	t.Helper()
	f := newFixture(t, cfgOpts, engine.Options{}, remote...)
	f.start(t)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = f.eng.Unload(context.Background()) })
	f.reset()
}

func (f *fixture) reset() {
	f.mu.Lock()
	f.events = nil
	f.messages = nil
	f.mu.Unlock()
}

func (f *fixture) names() []signals.Name {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]signals.Name, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Name
	}
	return out
}

func (f *fixture) lastMessage() message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return message{}
	}
	return f.messages[len(f.messages)-1]
}

func show(id media.ID, title string, progress, total int, status media.Status) media.Item {
	return media.Item{ID: id, Title: title, Image: "x.png", Total: total, MyProgress: progress, MyStatus: status}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
