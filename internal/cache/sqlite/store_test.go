package sqlite

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/lumapos/edge/internal/cache"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutMatchRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := cache.Entry{
		Status: 200,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`[{"id":1}]`),
	}
	if err := store.Put(ctx, "api-cache-v1", "GET https://pos.example.com/api/products", entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, ok, err := store.Match(ctx, "api-cache-v1", "GET https://pos.example.com/api/products")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if loaded.Status != 200 {
		t.Fatalf("expected status 200, got %d", loaded.Status)
	}
	if got := loaded.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content type header, got %q", got)
	}
	if string(loaded.Body) != `[{"id":1}]` {
		t.Fatalf("unexpected body %q", loaded.Body)
	}
	if loaded.StoredAt.IsZero() {
		t.Fatal("expected stored_at to be set")
	}
}

func TestMatchMiss(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Match(context.Background(), "api-cache-v1", "GET /missing")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestOverwriteKeepsInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"GET /a.png", "GET /b.png", "GET /c.png"} {
		if err := store.Put(ctx, "image-cache-v1", key, cache.Entry{Body: []byte(key)}); err != nil {
			t.Fatalf("put %q: %v", key, err)
		}
	}
	if err := store.Put(ctx, "image-cache-v1", "GET /a.png", cache.Entry{Body: []byte("new")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	keys, err := store.Keys(ctx, "image-cache-v1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"GET /a.png", "GET /b.png", "GET /c.png"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected key %q at %d, got %q", want[i], i, keys[i])
		}
	}

	loaded, ok, err := store.Match(ctx, "image-cache-v1", "GET /a.png")
	if err != nil || !ok {
		t.Fatalf("match overwritten entry: ok=%v err=%v", ok, err)
	}
	if string(loaded.Body) != "new" {
		t.Fatalf("expected overwritten body, got %q", loaded.Body)
	}
}

func TestDeletePartition(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "snia-pos-cache-v1", "GET /", cache.Entry{Body: []byte("shell")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "image-cache-v1", "GET /a.png", cache.Entry{Body: []byte("img")}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.DeletePartition(ctx, "snia-pos-cache-v1"); err != nil {
		t.Fatalf("delete partition: %v", err)
	}
	names, err := store.Names(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 1 || names[0] != "image-cache-v1" {
		t.Fatalf("expected only image partition, got %v", names)
	}

	if err := store.DeletePartition(ctx, "snia-pos-cache-v1"); !errors.Is(err, cache.ErrNoPartition) {
		t.Fatalf("expected ErrNoPartition, got %v", err)
	}
}

func TestEntriesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open cache store: %v", err)
	}
	if err := store.Put(context.Background(), "api-cache-v1", "GET /api/products", cache.Entry{Body: []byte("rows")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen cache store: %v", err)
	}
	defer reopened.Close()

	loaded, ok, err := reopened.Match(context.Background(), "api-cache-v1", "GET /api/products")
	if err != nil || !ok {
		t.Fatalf("match after reopen: ok=%v err=%v", ok, err)
	}
	if string(loaded.Body) != "rows" {
		t.Fatalf("expected persisted body, got %q", loaded.Body)
	}
}
