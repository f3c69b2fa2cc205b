package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/lumapos/edge/internal/catalog"
	"github.com/lumapos/edge/internal/storage"
)

const (
	productBucket = "products"
	metaBucket    = "meta"
)

// Store provides a BoltDB-backed catalog store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutProducts persists the batch in a single transaction. Each product is
// normalized through a JSON round-trip before write, so values carrying
// non-serializable state cannot poison the stored record. If the transaction
// aborts, no product from the batch is written.
func (s *Store) PutProducts(ctx context.Context, products []catalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	payloads := make(map[int64][]byte, len(products))
	for _, product := range products {
		if product.ID == 0 {
			return fmt.Errorf("product id is required")
		}
		raw, err := json.Marshal(product)
		if err != nil {
			return fmt.Errorf("marshal product %d: %w", product.ID, err)
		}
		var plain catalog.Product
		if err := json.Unmarshal(raw, &plain); err != nil {
			return fmt.Errorf("normalize product %d: %w", product.ID, err)
		}
		payload, err := json.Marshal(plain)
		if err != nil {
			return fmt.Errorf("marshal product %d: %w", product.ID, err)
		}
		payloads[product.ID] = payload
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		if bucket == nil {
			return fmt.Errorf("product bucket is missing")
		}
		for id, payload := range payloads {
			if err := bucket.Put(productKey(id), payload); err != nil {
				return fmt.Errorf("put product %d: %w", id, err)
			}
		}
		return nil
	})
}

// ListProducts fetches every durable product record. Order is not guaranteed.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var products []catalog.Product
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		if bucket == nil {
			return fmt.Errorf("product bucket is missing")
		}
		return bucket.ForEach(func(_, payload []byte) error {
			var product catalog.Product
			if err := json.Unmarshal(payload, &product); err != nil {
				return fmt.Errorf("unmarshal product: %w", err)
			}
			products = append(products, product)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return products, nil
}

// GetDigest fetches a named slot value. It returns storage.ErrNotFound when
// the slot has never been written.
func (s *Store) GetDigest(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("slot name is required")
	}

	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		if bucket == nil {
			return fmt.Errorf("meta bucket is missing")
		}
		payload := bucket.Get([]byte(name))
		if payload == nil {
			return storage.ErrNotFound
		}
		value = string(payload)
		return nil
	})
	if err != nil {
		return "", err
	}

	return value, nil
}

// SetDigest stores a named slot value, overwriting any previous one.
func (s *Store) SetDigest(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("slot name is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		if bucket == nil {
			return fmt.Errorf("meta bucket is missing")
		}
		return bucket.Put([]byte(name), []byte(value))
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{productBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func productKey(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}
