package data

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracklist/internal/media"
	"tracklist/internal/signals"
)

func TestOfflineAddThenSend(t *testing.T) {
	hs := newHarness(t)
	hs.start(t)
	ctx := context.Background()
	hs.rec.reset()

	if err := hs.h.QueueAdd(ctx, media.Item{ID: "101", Title: "A", MyStatus: "plan_to_watch"}); err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	got, ok := hs.h.Item("101")
	if !ok || got.Title != "A" || !got.Queued {
		t.Fatalf("item after add = %+v, %v", got, ok)
	}
	queue := hs.h.Queue()
	if len(queue) != 1 || queue[0].Action != media.ActionAdd {
		t.Fatalf("queue after add = %+v", queue)
	}
	evs := hs.rec.events(t)
	if diff := cmp.Diff([]signals.Name{signals.ShowAdded, signals.QueueChanged}, names(evs)); diff != "" {
		t.Fatalf("signals (-want +got):\n%s", diff)
	}
	if evs[1].QueueLength != 1 {
		t.Fatalf("queue_changed length = %d", evs[1].QueueLength)
	}

	hs.rec.reset()
	res, err := hs.h.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if res.Sent != 1 || res.Remaining != 0 {
		t.Fatalf("drain result = %+v", res)
	}
	evs = hs.rec.events(t)
	if diff := cmp.Diff([]signals.Name{signals.ShowSynced, signals.QueueChanged}, names(evs)); diff != "" {
		t.Fatalf("signals (-want +got):\n%s", diff)
	}
	if evs[0].Item.ID != "101" || evs[1].QueueLength != 0 {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if _, ok := hs.fake.Remote()["101"]; !ok {
		t.Fatal("site never received the add")
	}
	if got, _ := hs.h.Item("101"); got.Queued {
		t.Fatal("item still flagged as queued")
	}
}

func TestUpdatesMergeIntoOneEntry(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("77", "Seventy Seven", 0, 12))
	hs.start(t)
	ctx := context.Background()

	for _, change := range []media.PendingChange{
		media.PendingChange{}.SetProgress(3),
		media.PendingChange{}.SetScore(7),
		media.PendingChange{}.SetProgress(4),
	} {
		if _, err := hs.h.QueueUpdate(ctx, "77", change); err != nil {
			t.Fatalf("QueueUpdate: %v", err)
		}
	}

	queue := hs.h.Queue()
	if len(queue) != 1 {
		t.Fatalf("expected one entry, got %+v", queue)
	}
	want := media.PendingChange{}.SetProgress(4).SetScore(7)
	if queue[0].ID != "77" || queue[0].Action != media.ActionUpdate || !queue[0].Changes.Equal(want) {
		t.Fatalf("unexpected entry: %+v", queue[0])
	}
	if queue[0].Revision != 2 {
		t.Fatalf("revision = %d, want 2", queue[0].Revision)
	}
}

func TestAddThenDeleteCollapses(t *testing.T) {
	hs := newHarness(t)
	hs.start(t)
	ctx := context.Background()

	if err := hs.h.QueueAdd(ctx, item("5", "Five", 0, 0)); err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	if err := hs.h.QueueDelete(ctx, "5"); err != nil {
		t.Fatalf("QueueDelete: %v", err)
	}
	if _, err := hs.h.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if q := hs.h.Queue(); len(q) != 0 {
		t.Fatalf("queue not empty: %+v", q)
	}
	if _, ok := hs.h.Item("5"); ok {
		t.Fatal("deleted item still listed")
	}
	for _, op := range []string{"add", "update", "delete"} {
		if n := hs.fake.CallCount(op); n != 0 {
			t.Fatalf("%s called %d times", op, n)
		}
	}
}

func TestDeleteReplacesPendingUpdate(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("3", "Three", 1, 12))
	hs.start(t)
	ctx := context.Background()

	if _, err := hs.h.QueueUpdate(ctx, "3", media.PendingChange{}.SetProgress(2)); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	if err := hs.h.QueueDelete(ctx, "3"); err != nil {
		t.Fatalf("QueueDelete: %v", err)
	}
	queue := hs.h.Queue()
	if len(queue) != 1 || queue[0].Action != media.ActionDelete || !queue[0].Changes.IsEmpty() {
		t.Fatalf("unexpected queue: %+v", queue)
	}
}

func TestAddAfterDeleteBecomesUpdate(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("9", "Nine", 1, 12))
	hs.start(t)
	ctx := context.Background()

	if err := hs.h.QueueDelete(ctx, "9"); err != nil {
		t.Fatalf("QueueDelete: %v", err)
	}
	readded := item("9", "Nine", 3, 12)
	if err := hs.h.QueueAdd(ctx, readded); err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	queue := hs.h.Queue()
	if len(queue) != 1 || queue[0].Action != media.ActionUpdate {
		t.Fatalf("unexpected queue: %+v", queue)
	}
	if !queue[0].Changes.Equal(media.UserFields(readded)) {
		t.Fatalf("changes = %+v", queue[0].Changes)
	}
}

func TestLocalValidationErrors(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 0, 12))
	hs.start(t)
	ctx := context.Background()

	if err := hs.h.QueueAdd(ctx, item("1", "One", 0, 12)); !errors.Is(err, media.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := hs.h.QueueDelete(ctx, "404"); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := hs.h.QueueUpdate(ctx, "404", media.PendingChange{}.SetProgress(1)); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := hs.h.QueueUpdate(ctx, "1", media.PendingChange{}); !errors.Is(err, media.ErrNoChange) {
		t.Fatalf("expected no change, got %v", err)
	}
	if len(hs.h.Queue()) != 0 {
		t.Fatal("rejected operations touched the queue")
	}
}

func TestQueuedFlagMatchesQueue(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("1", "One", 0, 12), item("2", "Two", 0, 12))
	hs.start(t)
	ctx := context.Background()

	if _, err := hs.h.QueueUpdate(ctx, "2", media.PendingChange{}.SetScore(5)); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	queued := map[media.ID]bool{}
	for _, e := range hs.h.Queue() {
		queued[e.ID] = true
	}
	for id, it := range hs.h.Get() {
		if it.Queued != queued[id] {
			t.Fatalf("item %s queued=%v, queue says %v", id, it.Queued, queued[id])
		}
	}

	n, err := hs.h.QueueClear(ctx)
	if err != nil || n != 1 {
		t.Fatalf("QueueClear = %d, %v", n, err)
	}
	if it, _ := hs.h.Item("2"); it.Queued {
		t.Fatal("cleared item still queued")
	}
}

func TestMutationsPersistBeforeSignals(t *testing.T) {
	hs := newHarness(t)
	hs.fake.SetRemote(item("4", "Four", 0, 12))
	hs.start(t)

	var persisted []media.QueueEntry
	hs.bus.Subscribe(signals.EpisodeChanged, func(context.Context, signals.Event) {
		persisted, _, _ = hs.h.queueFile.Load()
	})
	if _, err := hs.h.QueueUpdate(context.Background(), "4", media.PendingChange{}.SetProgress(1)); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	hs.rec.events(t)
	if len(persisted) != 1 || persisted[0].ID != "4" {
		t.Fatalf("queue on disk when signalled = %+v", persisted)
	}
}
