// Package memory provides an in-process cache.Store used as the default
// backend and as the test fake for components that take injected partitions.
package memory

import (
	"context"
	"sync"

	"github.com/lumapos/edge/internal/cache"
)

type partition struct {
	order   []string
	entries map[string]cache.Entry
}

// Store keeps cache partitions in process memory, preserving insertion order
// per partition.
type Store struct {
	mu         sync.Mutex
	partitions map[string]*partition
}

// NewStore creates an empty in-memory cache store.
func NewStore() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

// Match fetches the entry for key within a partition.
func (s *Store) Match(ctx context.Context, name, key string) (cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.Entry{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[name]
	if !ok {
		return cache.Entry{}, false, nil
	}
	entry, ok := part.entries[key]
	return entry, ok, nil
}

// Put stores an entry, creating the partition on first use. Overwriting an
// existing key keeps its original insertion position.
func (s *Store) Put(ctx context.Context, name, key string, entry cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[name]
	if !ok {
		part = &partition{entries: make(map[string]cache.Entry)}
		s.partitions[name] = part
	}
	if _, exists := part.entries[key]; !exists {
		part.order = append(part.order, key)
	}
	part.entries[key] = entry
	return nil
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, name, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[name]
	if !ok {
		return nil
	}
	if _, exists := part.entries[key]; !exists {
		return nil
	}
	delete(part.entries, key)
	for i, existing := range part.order {
		if existing == key {
			part.order = append(part.order[:i], part.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys enumerates a partition's keys in insertion order.
func (s *Store) Keys(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[name]
	if !ok {
		return nil, nil
	}
	keys := make([]string, len(part.order))
	copy(keys, part.order)
	return keys, nil
}

// Names lists the partitions currently present.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	return names, nil
}

// DeletePartition removes a partition and all of its entries.
func (s *Store) DeletePartition(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.partitions[name]; !ok {
		return cache.ErrNoPartition
	}
	delete(s.partitions, name)
	return nil
}
