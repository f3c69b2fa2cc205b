// Package sync reconciles the remote product catalog against the durable
// local store so the point of sale keeps a usable catalog when connectivity
// drops.
//
// One entry point exists, Refresh: when offline it publishes whatever the
// durable store holds; when online it fetches the remote catalog once, runs
// the change-detection gate against the stored fingerprint, and either
// persists the new snapshot or reuses the local copy. A failed fetch surfaces
// its message and leaves the previously published catalog untouched.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumapos/edge/internal/catalog"
	"github.com/lumapos/edge/internal/catalog/fingerprint"
	"github.com/lumapos/edge/internal/storage"
)

// Source fetches the full remote catalog.
type Source interface {
	FetchProducts(ctx context.Context) ([]catalog.Product, error)
}

// Store combines the persistence surfaces the synchronizer needs.
type Store interface {
	storage.CatalogStore
	storage.DigestStore
}

// Connectivity reports whether the network is believed reachable. It must not
// block on a network probe.
type Connectivity func() bool

// State is the published catalog state consumed by the UI layer.
type State struct {
	Products []catalog.Product
	Loading  bool
	Err      string
}

// Synchronizer orchestrates remote fetches, change detection, and offline
// fallback. Concurrent Refresh calls are not serialized; only the loading
// flag is guaranteed accurate.
type Synchronizer struct {
	source Source
	store  Store
	online Connectivity

	mu         gosync.Mutex
	state      State
	subscriber func(State)
}

// New creates a synchronizer.
func New(source Source, store Store, online Connectivity) (*Synchronizer, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if online == nil {
		return nil, fmt.Errorf("connectivity signal is required")
	}
	return &Synchronizer{source: source, store: store, online: online}, nil
}

// Subscribe registers a callback invoked with each published state. At most
// one subscriber is supported; a later call replaces the earlier one.
func (s *Synchronizer) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = fn
}

// State returns a copy of the current published state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Refresh runs the synchronization state machine once and returns the state
// it published. Every terminal path, including errors, clears the loading
// flag.
func (s *Synchronizer) Refresh(ctx context.Context) (state State) {
	ctx, span := otel.Tracer("lumapos/edge/catalog").Start(ctx, "catalog.refresh")
	defer span.End()

	s.setLoading(true)
	defer func() {
		s.setLoading(false)
		state = s.State()
	}()

	online := s.online()
	span.SetAttributes(attribute.Bool("catalog.online", online))

	if !online {
		s.refreshOffline(ctx)
		return
	}
	s.refreshOnline(ctx, span.SetAttributes)
	return
}

// refreshOffline publishes the durable catalog without any network call.
func (s *Synchronizer) refreshOffline(ctx context.Context) State {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return s.publishError(fmt.Sprintf("offline catalog unavailable: %v", err))
	}
	return s.publishProducts(products)
}

func (s *Synchronizer) refreshOnline(ctx context.Context, annotate func(...attribute.KeyValue)) State {
	rows, err := s.source.FetchProducts(ctx)
	if err != nil {
		// Keep the previously published catalog; only the message changes.
		return s.publishError(err.Error())
	}

	previous, err := s.store.GetDigest(ctx, fingerprint.Slot)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		// A broken digest slot forces the write path rather than losing data.
		previous = ""
	}

	write, digest, err := fingerprint.ShouldWrite(previous, rows)
	if err != nil {
		return s.publishError(fmt.Sprintf("fingerprint catalog: %v", err))
	}
	annotate(attribute.Bool("catalog.changed", write))

	if !write {
		// Local store is assumed to already equal remote; read it back
		// instead of re-writing the identical snapshot.
		products, err := s.store.ListProducts(ctx)
		if err != nil {
			return s.publishError(fmt.Sprintf("read local catalog: %v", err))
		}
		return s.publishProducts(products)
	}

	state := s.publishProducts(rows)
	if err := s.store.PutProducts(ctx, rows); err != nil {
		return s.publishError(fmt.Sprintf("persist catalog: %v", err))
	}
	if err := s.store.SetDigest(ctx, fingerprint.Slot, digest); err != nil {
		return s.publishError(fmt.Sprintf("persist catalog digest: %v", err))
	}
	return state
}

func (s *Synchronizer) setLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	if loading {
		s.state.Err = ""
	}
	state := s.snapshotLocked()
	subscriber := s.subscriber
	s.mu.Unlock()

	if subscriber != nil {
		subscriber(state)
	}
}

func (s *Synchronizer) publishProducts(products []catalog.Product) State {
	s.mu.Lock()
	s.state.Products = products
	s.state.Err = ""
	state := s.snapshotLocked()
	subscriber := s.subscriber
	s.mu.Unlock()

	if subscriber != nil {
		subscriber(state)
	}
	return state
}

func (s *Synchronizer) publishError(message string) State {
	s.mu.Lock()
	s.state.Err = message
	state := s.snapshotLocked()
	subscriber := s.subscriber
	s.mu.Unlock()

	if subscriber != nil {
		subscriber(state)
	}
	return state
}

func (s *Synchronizer) snapshotLocked() State {
	state := s.state
	state.Products = make([]catalog.Product, len(s.state.Products))
	copy(state.Products, s.state.Products)
	return state
}
