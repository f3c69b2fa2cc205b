package proxy

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/lumapos/edge/internal/cache"
	"github.com/lumapos/edge/internal/cache/imagecache"
)

// Names holds the three current cache partition names. Bump a name on any
// incompatible change; activation deletes every partition not listed here.
type Names struct {
	Static string
	API    string
	Image  string
}

// DefaultNames are the current partition versions.
var DefaultNames = Names{
	Static: "pos-static-v2",
	API:    "api-cache-v1",
	Image:  "image-cache-v1",
}

// List returns the allow-list used during generation cleanup.
func (n Names) List() []string {
	return []string{n.Static, n.API, n.Image}
}

// Fetch performs a network fetch for a request.
type Fetch func(*http.Request) (*http.Response, error)

// apiPathMarker classifies API traffic.
const apiPathMarker = "/api/"

// shellPath is the application shell document served when a navigation fetch
// fails offline.
const shellPath = "/"

// Proxy intercepts every request and dispatches it to one of three caching
// strategies: network-first for API calls, cache-first for images (bounded),
// and cache-first for static assets. Navigation requests additionally promote
// a waiting worker generation when the network is reachable again.
type Proxy struct {
	names  Names
	store  cache.Store
	images *imagecache.Cache
	fetch  Fetch

	mu      sync.Mutex
	waiting *Worker
}

// New creates a proxy over the given partitions and network fetch.
func New(names Names, store cache.Store, fetch Fetch) (*Proxy, error) {
	images, err := imagecache.New(names.Image, store, imagecache.Fetch(fetch))
	if err != nil {
		return nil, err
	}
	return &Proxy{names: names, store: store, images: images, fetch: fetch}, nil
}

// SetWaiting registers a newer worker generation waiting to activate. A
// successful navigation fetch signals it to take over immediately. Safe to
// call while the proxy is serving.
func (p *Proxy) SetWaiting(w *Worker) {
	p.mu.Lock()
	p.waiting = w
	p.mu.Unlock()
}

func (p *Proxy) waitingWorker() *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiting
}

// ServeHTTP classifies the request and applies the matching strategy.
// Classification order matters: navigation, image, API, then everything else.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case isNavigation(r):
		p.serveNavigation(w, r)
	case isImage(r):
		p.serveImage(w, r)
	case isAPI(r):
		p.serveAPI(w, r)
	default:
		p.serveStatic(w, r)
	}
}

// serveNavigation is network-first with the cached application shell as the
// offline fallback. A successful fetch signals any waiting generation.
func (p *Proxy) serveNavigation(w http.ResponseWriter, r *http.Request) {
	resp, err := p.fetch(r)
	if err == nil {
		p.waitingWorker().Signal()
		writeResponse(w, resp)
		return
	}

	entry, ok, matchErr := p.store.Match(r.Context(), p.names.Static, shellIdentity(r))
	if matchErr != nil || !ok {
		log.Printf("navigation offline and no cached shell: fetch=%v match=%v", err, matchErr)
		http.Error(w, "offline and no cached application shell", http.StatusServiceUnavailable)
		return
	}
	writeResponse(w, entry.Response())
}

func (p *Proxy) serveImage(w http.ResponseWriter, r *http.Request) {
	resp, err := p.images.FetchImage(r.Context(), r)
	if err != nil {
		http.Error(w, "image unavailable", http.StatusBadGateway)
		return
	}
	writeResponse(w, resp)
}

// serveAPI is network-first: every successful response overwrites the cached
// entry for this request identity; on failure the cached entry, if any, is
// served instead.
func (p *Proxy) serveAPI(w http.ResponseWriter, r *http.Request) {
	key := cache.Identity(r)

	resp, err := p.fetch(r)
	if err == nil {
		entry, resp, cloneErr := cache.Clone(resp)
		if cloneErr != nil {
			http.Error(w, "api response unreadable", http.StatusBadGateway)
			return
		}
		if putErr := p.store.Put(r.Context(), p.names.API, key, entry); putErr != nil {
			log.Printf("api cache put failed: %v", putErr)
		}
		writeResponse(w, resp)
		return
	}

	entry, ok, matchErr := p.store.Match(r.Context(), p.names.API, key)
	if matchErr != nil || !ok {
		http.Error(w, "api unavailable", http.StatusBadGateway)
		return
	}
	writeResponse(w, entry.Response())
}

// serveStatic is cache-first; misses go to the network and are not cached.
func (p *Proxy) serveStatic(w http.ResponseWriter, r *http.Request) {
	key := cache.Identity(r)

	entry, ok, err := p.store.Match(r.Context(), p.names.Static, key)
	if err == nil && ok {
		writeResponse(w, entry.Response())
		return
	}
	if err != nil {
		log.Printf("static cache match failed, falling through to network: %v", err)
	}

	resp, err := p.fetch(r)
	if err != nil {
		http.Error(w, "asset unavailable", http.StatusBadGateway)
		return
	}
	writeResponse(w, resp)
}

func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".avif": true,
}

func isImage(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Dest") == "image" {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Accept"), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(r.URL.Path))]
}

func isAPI(r *http.Request) bool {
	return strings.Contains(r.URL.Path, apiPathMarker)
}

// shellIdentity is the static-partition key of the application shell for the
// request's origin.
func shellIdentity(r *http.Request) string {
	shell := *r.URL
	shell.Path = shellPath
	shell.RawQuery = ""
	shell.Fragment = ""
	return http.MethodGet + " " + shell.String()
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()
	for name, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("write proxied response: %v", err)
	}
}

// UpstreamFetch builds a Fetch that forwards requests to the upstream origin,
// keeping the inbound path and query.
func UpstreamFetch(base *url.URL, client *http.Client) Fetch {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(r *http.Request) (*http.Response, error) {
		target := *base
		target.Path = r.URL.Path
		target.RawQuery = r.URL.RawQuery

		ctx := r.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		upstream, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
		if err != nil {
			return nil, err
		}
		upstream.Header = r.Header.Clone()
		return client.Do(upstream)
	}
}
