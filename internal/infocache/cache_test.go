package infocache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tracklist/internal/media"
)

func TestCachePutGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "joe.local", "anime.info")
	c, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	airing := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	err = c.Put(ctx,
		media.Item{ID: "1", Title: "Alpha", Image: "a.png", Total: 12, StartDate: &airing, MyProgress: 5},
		media.Item{ID: "2", Title: "Beta", Aliases: []string{"B"}},
	)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if got.Title != "Alpha" || got.Total != 12 || got.StartDate == nil || !got.StartDate.Equal(airing) {
		t.Fatalf("unexpected info: %+v", got)
	}
	if got.MyProgress != 0 {
		t.Fatal("user-owned fields must not be cached")
	}

	if err := c.Put(ctx, media.Item{ID: "1", Title: "Alpha (TV)"}); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	many, err := c.GetMany(ctx, []media.ID{"1", "2", "3"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(many) != 2 || many["1"].Title != "Alpha (TV)" || many["2"].Aliases[0] != "B" {
		t.Fatalf("unexpected GetMany result: %+v", many)
	}
	if n, err := c.Count(ctx); err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestCacheReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "anime.info")
	c, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, media.Item{ID: "7", Title: "Gamma"}); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Get(ctx, "7"); err != nil || !ok {
		t.Fatalf("expected entry after reopen: %v %v", ok, err)
	}
}
