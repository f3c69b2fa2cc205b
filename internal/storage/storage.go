package storage

import (
	"context"
	"errors"

	"github.com/lumapos/edge/internal/catalog"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// CatalogStore persists product records between process restarts.
//
// PutProducts writes the whole batch transactionally: either every supplied
// product is durable afterwards or none is. ListProducts returns whatever is
// currently durable, in no particular order.
type CatalogStore interface {
	PutProducts(ctx context.Context, products []catalog.Product) error
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// DigestStore holds named single-value slots, such as the last catalog
// fingerprint. Get returns ErrNotFound when the slot has never been set.
type DigestStore interface {
	GetDigest(ctx context.Context, name string) (string, error)
	SetDigest(ctx context.Context, name, value string) error
}
