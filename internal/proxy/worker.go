package proxy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/lumapos/edge/internal/cache"
)

// Phase is a worker generation's lifecycle phase.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseWaiting
	PhaseActive
)

// Worker is one proxy generation. Install pre-warms the static partition and
// immediately marks the worker waiting (it does not wait for older clients to
// close). Activate purges partitions outside the current allow-list and
// claims open clients. A waiting worker can also be activated remotely
// through its update signal channel.
type Worker struct {
	names    Names
	manifest []string
	store    cache.Store
	fetch    Fetch

	mu       sync.Mutex
	phase    Phase
	activate chan struct{}
}

// NewWorker creates a worker generation for the given partitions and static
// asset manifest.
func NewWorker(names Names, manifest []string, store cache.Store, fetch Fetch) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch func is required")
	}
	return &Worker{
		names:    names,
		manifest: manifest,
		store:    store,
		fetch:    fetch,
		activate: make(chan struct{}, 1),
	}, nil
}

// Install fetches every manifest path and stores it in the static partition,
// then moves the worker to the waiting phase. Any failed asset fails the
// install so a partial shell is never reported as a complete pre-warm.
func (w *Worker) Install(ctx context.Context) error {
	for _, assetPath := range w.manifest {
		u, err := url.Parse(assetPath)
		if err != nil {
			return fmt.Errorf("parse manifest path %q: %w", assetPath, err)
		}
		req := (&http.Request{Method: http.MethodGet, URL: u}).WithContext(ctx)

		resp, err := w.fetch(req)
		if err != nil {
			return fmt.Errorf("pre-warm %q: %w", assetPath, err)
		}
		entry, resp, err := cache.Clone(resp)
		if err != nil {
			return fmt.Errorf("read %q: %w", assetPath, err)
		}
		_ = resp.Body.Close()
		if err := w.store.Put(ctx, w.names.Static, cache.Identity(req), entry); err != nil {
			return fmt.Errorf("cache %q: %w", assetPath, err)
		}
	}

	w.mu.Lock()
	w.phase = PhaseWaiting
	w.mu.Unlock()
	return nil
}

// Activate performs generation cleanup and claims open clients: every cache
// partition whose name is not in the current allow-list is deleted wholesale.
// It does not require a completed install; cleanup only removes partitions
// outside the allow-list and never touches the current shell.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("enumerate cache partitions: %w", err)
	}

	keep := make(map[string]bool, 3)
	for _, name := range w.names.List() {
		keep[name] = true
	}

	for _, name := range names {
		if keep[name] {
			continue
		}
		if err := w.store.DeletePartition(ctx, name); err != nil {
			return fmt.Errorf("delete stale partition %q: %w", name, err)
		}
		log.Printf("deleted stale cache partition %q", name)
	}

	w.mu.Lock()
	w.phase = PhaseActive
	w.mu.Unlock()
	return nil
}

// Phase returns the worker's current lifecycle phase.
func (w *Worker) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Signal sends the "activate now" control message. It never blocks; repeated
// signals coalesce.
func (w *Worker) Signal() {
	if w == nil {
		return
	}
	select {
	case w.activate <- struct{}{}:
	default:
	}
}

// AwaitActivate blocks until the update signal arrives or the context ends,
// then activates the worker.
func (w *Worker) AwaitActivate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.activate:
		return w.Activate(ctx)
	}
}
