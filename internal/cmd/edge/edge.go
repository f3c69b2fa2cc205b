// Package edge wires the offline edge binary: configuration, storage, the
// catalog synchronizer, and the interception proxy.
package edge

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	appedge "github.com/lumapos/edge/internal/app/edge"
	"github.com/lumapos/edge/internal/cache"
	cachememory "github.com/lumapos/edge/internal/cache/memory"
	cachesqlite "github.com/lumapos/edge/internal/cache/sqlite"
	catalogsync "github.com/lumapos/edge/internal/catalog/sync"
	"github.com/lumapos/edge/internal/catalog/supabase"
	"github.com/lumapos/edge/internal/platform/config"
	"github.com/lumapos/edge/internal/platform/connectivity"
	"github.com/lumapos/edge/internal/platform/otel"
	"github.com/lumapos/edge/internal/proxy"
	"github.com/lumapos/edge/internal/storage/bbolt"
)

// Config holds the edge command configuration.
type Config struct {
	HTTPAddr        string        `env:"POS_EDGE_HTTP_ADDR" envDefault:"localhost:8090"`
	UpstreamURL     string        `env:"POS_EDGE_UPSTREAM_URL" envDefault:"http://localhost:5173"`
	SupabaseURL     string        `env:"POS_EDGE_SUPABASE_URL"`
	SupabaseAnonKey string        `env:"POS_EDGE_SUPABASE_ANON_KEY"`
	CatalogDBPath   string        `env:"POS_EDGE_CATALOG_DB" envDefault:"edge-catalog.db"`
	CacheDBPath     string        `env:"POS_EDGE_CACHE_DB"`
	AssetManifest   string        `env:"POS_EDGE_ASSET_MANIFEST"`
	RefreshInterval time.Duration `env:"POS_EDGE_REFRESH_INTERVAL" envDefault:"1m"`
	ProbeInterval   time.Duration `env:"POS_EDGE_PROBE_INTERVAL" envDefault:"30s"`
}

// ParseConfig reads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.UpstreamURL, "upstream-url", cfg.UpstreamURL, "upstream origin base URL")
	fs.StringVar(&cfg.SupabaseURL, "supabase-url", cfg.SupabaseURL, "Supabase project URL")
	fs.StringVar(&cfg.SupabaseAnonKey, "supabase-anon-key", cfg.SupabaseAnonKey, "Supabase anon key")
	fs.StringVar(&cfg.CatalogDBPath, "catalog-db", cfg.CatalogDBPath, "durable catalog db path")
	fs.StringVar(&cfg.CacheDBPath, "cache-db", cfg.CacheDBPath, "cache db path (empty keeps caches in memory)")
	fs.StringVar(&cfg.AssetManifest, "asset-manifest", cfg.AssetManifest, "static asset manifest YAML path")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", cfg.RefreshInterval, "catalog refresh interval")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports configuration the service cannot start without. Missing
// Supabase credentials are a configuration error; the service refuses to
// start rather than run half-configured.
func (c Config) Validate() error {
	if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
		return fmt.Errorf("supabase url and anon key are required; set POS_EDGE_SUPABASE_URL and POS_EDGE_SUPABASE_ANON_KEY")
	}
	return nil
}

// Run starts the edge service and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdownTracing, err := otel.Setup(ctx, "pos-edge")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	catalogStore, err := bbolt.Open(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer catalogStore.Close()

	var cacheStore cache.Store
	if cfg.CacheDBPath != "" {
		store, err := cachesqlite.Open(cfg.CacheDBPath)
		if err != nil {
			return fmt.Errorf("open cache store: %w", err)
		}
		defer store.Close()
		cacheStore = store
	} else {
		cacheStore = cachememory.NewStore()
	}

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return fmt.Errorf("parse upstream url: %w", err)
	}
	fetch := proxy.UpstreamFetch(upstream, nil)

	manifest, err := proxy.LoadManifest(cfg.AssetManifest)
	if err != nil {
		return fmt.Errorf("load asset manifest: %w", err)
	}

	worker, err := proxy.NewWorker(proxy.DefaultNames, manifest, cacheStore, fetch)
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}
	if err := worker.Install(ctx); err != nil {
		// A failed pre-warm is not fatal; a previous run's shell may still
		// be cached.
		log.Printf("install worker: %v", err)
	}
	// Cleanup runs regardless of the pre-warm outcome: this process is the
	// only generation, so stale partitions would otherwise survive until a
	// later successful restart.
	if err := worker.Activate(ctx); err != nil {
		return fmt.Errorf("activate worker: %w", err)
	}

	interceptor, err := proxy.New(proxy.DefaultNames, cacheStore, fetch)
	if err != nil {
		return fmt.Errorf("init proxy: %w", err)
	}

	supabaseURL, err := url.Parse(cfg.SupabaseURL)
	if err != nil {
		return fmt.Errorf("parse supabase url: %w", err)
	}
	monitor, err := connectivity.NewMonitor(probeTarget(supabaseURL), cfg.ProbeInterval, nil)
	if err != nil {
		return fmt.Errorf("init connectivity monitor: %w", err)
	}
	go monitor.Run(ctx)

	source, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return fmt.Errorf("init catalog source: %w", err)
	}
	syncer, err := catalogsync.New(source, catalogStore, monitor.Online)
	if err != nil {
		return fmt.Errorf("init synchronizer: %w", err)
	}
	go refreshLoop(ctx, syncer, cfg.RefreshInterval)

	server, err := appedge.New(cfg.HTTPAddr, buildMux(interceptor, syncer))
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serve edge: %w", err)
	}
	return nil
}

// refreshLoop refreshes the catalog immediately and then on every tick.
func refreshLoop(ctx context.Context, syncer *catalogsync.Synchronizer, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := func() {
		if state := syncer.Refresh(ctx); state.Err != "" {
			log.Printf("catalog refresh: %s", state.Err)
		}
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func buildMux(interceptor *proxy.Proxy, syncer *catalogsync.Synchronizer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /edge/catalog", func(w http.ResponseWriter, _ *http.Request) {
		writeState(w, syncer.State())
	})
	mux.HandleFunc("POST /edge/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeState(w, syncer.Refresh(r.Context()))
	})
	mux.Handle("/", interceptor)
	return mux
}

func writeState(w http.ResponseWriter, state catalogsync.State) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Printf("encode catalog state: %v", err)
	}
}

// probeTarget derives the host:port the connectivity monitor dials.
func probeTarget(u *url.URL) string {
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "http":
			host += ":80"
		default:
			host += ":443"
		}
	}
	return host
}
