package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lumapos/edge/internal/catalog"
	"github.com/lumapos/edge/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edge.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCatalogStorePutList(t *testing.T) {
	store := openTestStore(t)

	products := []catalog.Product{
		{ID: 1, Name: "Kopi Susu", Price: 18000, Image: "https://cdn.example.com/kopi.jpg", Category: "drinks"},
		{ID: 2, Name: "Roti Bakar", Price: 15000},
	}

	if err := store.PutProducts(context.Background(), products); err != nil {
		t.Fatalf("put products: %v", err)
	}

	loaded, err := store.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 products, got %d", len(loaded))
	}

	byID := make(map[int64]catalog.Product, len(loaded))
	for _, product := range loaded {
		byID[product.ID] = product
	}
	if byID[1].Name != "Kopi Susu" {
		t.Fatalf("expected name %q, got %q", "Kopi Susu", byID[1].Name)
	}
	if byID[1].Price != 18000 {
		t.Fatalf("expected price %v, got %v", 18000.0, byID[1].Price)
	}
	if byID[1].Category != "drinks" {
		t.Fatalf("expected category %q, got %q", "drinks", byID[1].Category)
	}
	if byID[2].Image != "" {
		t.Fatalf("expected empty image, got %q", byID[2].Image)
	}
}

func TestCatalogStorePutOverwritesByID(t *testing.T) {
	store := openTestStore(t)

	if err := store.PutProducts(context.Background(), []catalog.Product{{ID: 1, Name: "Kopi Susu", Price: 18000}}); err != nil {
		t.Fatalf("put products: %v", err)
	}
	if err := store.PutProducts(context.Background(), []catalog.Product{{ID: 1, Name: "Kopi Susu", Price: 20000}}); err != nil {
		t.Fatalf("put updated products: %v", err)
	}

	loaded, err := store.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 product, got %d", len(loaded))
	}
	if loaded[0].Price != 20000 {
		t.Fatalf("expected updated price %v, got %v", 20000.0, loaded[0].Price)
	}
}

func TestCatalogStoreRejectsZeroID(t *testing.T) {
	store := openTestStore(t)

	err := store.PutProducts(context.Background(), []catalog.Product{
		{ID: 1, Name: "Kopi Susu", Price: 18000},
		{Name: "no id", Price: 1},
	})
	if err == nil {
		t.Fatal("expected error for missing product id")
	}

	loaded, err := store.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no partial write, got %d products", len(loaded))
	}
}

func TestDigestSlotRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.GetDigest(context.Background(), "products_hash"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.SetDigest(context.Background(), "products_hash", "1042"); err != nil {
		t.Fatalf("set digest: %v", err)
	}

	value, err := store.GetDigest(context.Background(), "products_hash")
	if err != nil {
		t.Fatalf("get digest: %v", err)
	}
	if value != "1042" {
		t.Fatalf("expected digest %q, got %q", "1042", value)
	}

	if err := store.SetDigest(context.Background(), "products_hash", "2048"); err != nil {
		t.Fatalf("overwrite digest: %v", err)
	}
	value, err = store.GetDigest(context.Background(), "products_hash")
	if err != nil {
		t.Fatalf("get digest: %v", err)
	}
	if value != "2048" {
		t.Fatalf("expected digest %q, got %q", "2048", value)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.PutProducts(context.Background(), []catalog.Product{{ID: 9, Name: "Es Teh", Price: 8000}}); err != nil {
		t.Fatalf("put products: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "Es Teh" {
		t.Fatalf("expected persisted product, got %+v", loaded)
	}
}
