package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tracklist/internal/config"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/testsupport"
)

func TestStartFetchesWhenNothingStored(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 3, 12))
	hs.start(t)

	if hs.fake.CallCount("fetch_list") != 1 {
		t.Fatalf("fetch_list called %d times", hs.fake.CallCount("fetch_list"))
	}
	if got, ok := hs.h.Item("1"); !ok || got.MyProgress != 3 {
		t.Fatalf("item = %+v, %v", got, ok)
	}
	if !hs.h.Meta().LastGet.Equal(testNow) {
		t.Fatalf("lastget = %v", hs.h.Meta().LastGet)
	}
}

func TestStartUsesFreshStoredList(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 3, 12))
	hs.start(t)
	if err := hs.h.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	hs.h = hs.newHandler()
	hs.start(t)
	if n := hs.fake.CallCount("fetch_list"); n != 1 {
		t.Fatalf("fresh list fetched again (%d calls)", n)
	}
	if _, ok := hs.h.Item("1"); !ok {
		t.Fatal("stored list not loaded")
	}
}

func TestStartRefetchesStaleOrForeignState(t *testing.T) {
	cases := []struct {
		name   string
		cfg    func(*config.Config)
		opts   []Option
		clock  time.Time
		fetchN int
	}{
		{name: "always", cfg: func(c *config.Config) { c.Autoretrieve = config.AutoretrieveAlways }, clock: testNow, fetchN: 2},
		{name: "days expired", cfg: func(c *config.Config) {
			c.Autoretrieve = config.AutoretrieveDays
			c.AutoretrieveDays = 3
		}, clock: testNow.Add(4 * 24 * time.Hour), fetchN: 2},
		{name: "days fresh", cfg: func(c *config.Config) {
			c.Autoretrieve = config.AutoretrieveDays
			c.AutoretrieveDays = 3
		}, clock: testNow.Add(24 * time.Hour), fetchN: 1},
		{name: "version changed", cfg: func(*config.Config) {}, opts: []Option{WithVersion("1.1.0")}, clock: testNow, fetchN: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hs := newHarness(t, testsupport.WithConfig(tc.cfg))
			hs.fake.SetRemote(item("1", "One", 3, 12))
			hs.start(t)
			if err := hs.h.Close(context.Background()); err != nil {
				t.Fatalf("Close: %v", err)
			}

			clock := tc.clock
			hs.h = hs.newHandler(append(tc.opts, WithClock(func() time.Time { return clock }))...)
			hs.start(t)
			if n := hs.fake.CallCount("fetch_list"); n != tc.fetchN {
				t.Fatalf("fetch_list calls = %d, want %d", n, tc.fetchN)
			}
		})
	}
}

func TestStartSendsQueueBeforeRefetch(t *testing.T) {
	hs := newHarness(t, testsupport.WithAutoretrieve(config.AutoretrieveAlways, 0))
	seedUpdates(t, hs, "1")
	if err := hs.h.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	hs.h = hs.newHandler()
	hs.start(t)
	calls := hs.fake.Calls()
	var ops []string
	for _, c := range calls[len(calls)-3:] {
		ops = append(ops, c.Op)
	}
	if diff := cmp.Diff([]string{"update", "check_credentials", "fetch_list"}, ops); diff != "" {
		t.Fatalf("startup calls (-want +got):\n%s", diff)
	}
	if got, _ := hs.h.Item("1"); got.MyProgress != 1 || got.Queued {
		t.Fatalf("item after startup = %+v", got)
	}
}

func TestStartFetchFailure(t *testing.T) {
	t.Run("no stored list", func(t *testing.T) {
		hs := newHarness(t)
		hs.fake.FailNext("fetch_list", media.ErrTransport)
		err := hs.h.Start(context.Background())
		if !errors.Is(err, media.ErrFatal) {
			t.Fatalf("expected fatal, got %v", err)
		}
		// The lock is released so a retry can start.
		if err := hs.h.lock.Acquire(false); err != nil {
			t.Fatalf("lock left behind: %v", err)
		}
		_ = hs.h.lock.Release()
	})
	t.Run("stored list", func(t *testing.T) {
		hs := newHarness(t, testsupport.WithAutoretrieve(config.AutoretrieveAlways, 0))
		hs.fake.SetRemote(item("1", "One", 3, 12))
		hs.start(t)
		if err := hs.h.Close(context.Background()); err != nil {
			t.Fatalf("Close: %v", err)
		}
		hs.fake.FailNext("fetch_list", media.ErrTransport)
		hs.h = hs.newHandler()
		hs.start(t)
		if _, ok := hs.h.Item("1"); !ok {
			t.Fatal("stored list not used after failed fetch")
		}
		issues := hs.h.StartIssues()
		if len(issues) != 1 || !errors.Is(issues[0].Err, media.ErrTransport) {
			t.Fatalf("start issues = %+v", issues)
		}
	})
	t.Run("stored list with revoked credentials", func(t *testing.T) {
		hs := newHarness(t, testsupport.WithAutoretrieve(config.AutoretrieveAlways, 0))
		hs.fake.SetRemote(item("1", "One", 3, 12))
		hs.start(t)
		if err := hs.h.Close(context.Background()); err != nil {
			t.Fatalf("Close: %v", err)
		}
		hs.fake.FailNext("check_credentials", media.ErrAuthFailed)
		hs.h = hs.newHandler()
		if err := hs.h.Start(context.Background()); !errors.Is(err, media.ErrAuthFailed) {
			t.Fatalf("expected AuthFailed, got %v", err)
		}
	})
}

func TestStartReportsFailedDrain(t *testing.T) {
	hs := newHarness(t, testsupport.WithAutoretrieve(config.AutoretrieveAlways, 0))
	hs.fake.SetRemote(item("1", "One", 0, 12))
	hs.start(t)
	if _, err := hs.h.QueueUpdate(context.Background(), "1", media.PendingChange{}.SetProgress(1)); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	if err := hs.h.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	hs.fake.FailNext("update", media.ErrTransport)
	hs.h = hs.newHandler()
	hs.start(t)
	issues := hs.h.StartIssues()
	if len(issues) != 1 || !errors.Is(issues[0].Err, media.ErrTransport) {
		t.Fatalf("start issues = %+v", issues)
	}
	if got, _ := hs.h.Item("1"); !got.Queued {
		t.Fatalf("change should stay queued: %+v", got)
	}
}

func TestLockedAccount(t *testing.T) {
	hs := newHarness(t)
	hs.start(t)

	second := hs.newHandler()
	if err := second.Start(context.Background()); !errors.Is(err, media.ErrLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if err := hs.h.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	_ = second.Close(context.Background())
}

func TestOperationsAfterCloseFail(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 0, 12))
	hs.start(t)
	ctx := context.Background()
	if err := hs.h.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := hs.h.QueueUpdate(ctx, "1", media.PendingChange{}.SetProgress(1)); !errors.Is(err, media.ErrUnloaded) {
		t.Fatalf("expected unloaded, got %v", err)
	}
	if _, err := hs.h.ProcessQueue(ctx); !errors.Is(err, media.ErrUnloaded) {
		t.Fatalf("expected unloaded, got %v", err)
	}
	if err := hs.h.Download(ctx); !errors.Is(err, media.ErrUnloaded) {
		t.Fatalf("expected unloaded, got %v", err)
	}
}

func TestDownloadMatchesSnapshotMergedWithInfo(t *testing.T) {
	hs := newHarness(t, testsupport.WithAutoretrieve(config.AutoretrieveAlways, 0))
	hs.fake.SetMerge(true)
	hs.fake.SetRemote(media.Item{ID: "1", MyProgress: 2, MyStatus: "watching"})
	hs.fake.SetCatalogue(media.Item{ID: "1", Title: "Alpha", Image: "a.png", Total: 12})
	hs.start(t)

	want := map[media.ID]media.Item{"1": {ID: "1", Title: "Alpha", Image: "a.png", Total: 12, MyProgress: 2, MyStatus: "watching"}}
	if diff := cmp.Diff(want, hs.h.Get()); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}
	if n := hs.fake.CallCount("request_info"); n != 1 {
		t.Fatalf("request_info calls = %d", n)
	}

	// A second fetch is served from the info cache.
	if err := hs.h.Download(context.Background()); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n := hs.fake.CallCount("request_info"); n != 1 {
		t.Fatalf("request_info calls after cached fetch = %d", n)
	}
	if diff := cmp.Diff(want, hs.h.Get()); diff != "" {
		t.Fatalf("list after refetch (-want +got):\n%s", diff)
	}
	if !hs.h.Meta().LastGet.Equal(testNow) {
		t.Fatalf("lastget = %v", hs.h.Meta().LastGet)
	}
}

func TestDownloadKeepsQueuedChanges(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 1, 12), item("2", "Two", 0, 12))
	hs.start(t)
	ctx := context.Background()

	if _, err := hs.h.QueueUpdate(ctx, "1", media.PendingChange{}.SetProgress(5)); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	if err := hs.h.QueueDelete(ctx, "2"); err != nil {
		t.Fatalf("QueueDelete: %v", err)
	}
	if err := hs.h.QueueAdd(ctx, item("3", "Three", 0, 0)); err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	hs.rec.reset()
	if err := hs.h.Download(ctx); err != nil {
		t.Fatalf("Download: %v", err)
	}

	list := hs.h.Get()
	if list["1"].MyProgress != 5 {
		t.Fatalf("queued progress lost: %+v", list["1"])
	}
	if _, ok := list["2"]; ok {
		t.Fatal("queued delete resurrected")
	}
	if _, ok := list["3"]; !ok {
		t.Fatal("queued add dropped")
	}
	for _, e := range hs.h.Queue() {
		if _, ok := list[e.ID]; !ok && e.Action != media.ActionDelete {
			t.Fatalf("queued id %s missing from list", e.ID)
		}
	}
	evs := hs.rec.events(t)
	if diff := cmp.Diff([]signals.Name{signals.ListChanged}, names(evs)); diff != "" {
		t.Fatalf("signals (-want +got):\n%s", diff)
	}
}

func TestApplyInfoAndAltnames(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 0, 12))
	hs.start(t)
	ctx := context.Background()

	if err := hs.h.ApplyInfo(ctx, []media.Item{{ID: "1", Title: "One Renamed", Aliases: []string{"Uno"}}, {ID: "99", Title: "Ignored"}}); err != nil {
		t.Fatalf("ApplyInfo: %v", err)
	}
	got, _ := hs.h.Item("1")
	if got.Title != "One Renamed" || got.MyProgress != 0 {
		t.Fatalf("item after info = %+v", got)
	}
	evs := hs.rec.events(t)
	last := evs[len(evs)-1]
	if last.Name != signals.ShowInfoChanged || len(last.Items) != 1 {
		t.Fatalf("unexpected last event: %+v", last)
	}

	if err := hs.h.AltnameSet("1", "Ichi"); err != nil {
		t.Fatalf("AltnameSet: %v", err)
	}
	if hs.h.AltnameGet("1") != "Ichi" {
		t.Fatal("altname not stored")
	}
	if err := hs.h.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	hs.h = hs.newHandler()
	hs.start(t)
	if diff := cmp.Diff(map[media.ID]string{"1": "Ichi"}, hs.h.AltNames(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("altnames after restart (-want +got):\n%s", diff)
	}
	if err := hs.h.AltnameClear("1"); err != nil {
		t.Fatalf("AltnameClear: %v", err)
	}
	if hs.h.AltnameGet("1") != "" {
		t.Fatal("altname not cleared")
	}
}

func TestInfoGetUsesCache(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetMerge(true)
	hs.fake.SetRemote(media.Item{ID: "1", MyStatus: "watching"})
	hs.fake.SetCatalogue(media.Item{ID: "1", Title: "Alpha", Image: "a.png"})
	hs.start(t)
	ctx := context.Background()

	calls := hs.fake.CallCount("request_info")
	info, err := hs.h.InfoGet(ctx, media.Item{ID: "1"})
	if err != nil || info.Title != "Alpha" {
		t.Fatalf("InfoGet = %+v, %v", info, err)
	}
	if hs.fake.CallCount("request_info") != calls {
		t.Fatal("cached info requested again")
	}
	if _, err := hs.h.InfoGet(ctx, media.Item{ID: "404"}); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
