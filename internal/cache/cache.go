package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoPartition indicates an operation against a partition that does not
// exist in the backing store.
var ErrNoPartition = errors.New("cache partition not found")

// Entry is one cached response, keyed by request identity within a partition.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store is a set of named cache partitions. Keys enumerate a partition in
// insertion order; re-putting an existing key overwrites the value without
// changing its position. Each single-key operation is atomic; no ordering is
// guaranteed across concurrent operations on different keys.
type Store interface {
	Match(ctx context.Context, partition, key string) (Entry, bool, error)
	Put(ctx context.Context, partition, key string, entry Entry) error
	Delete(ctx context.Context, partition, key string) error
	Keys(ctx context.Context, partition string) ([]string, error)
	Names(ctx context.Context) ([]string, error)
	DeletePartition(ctx context.Context, name string) error
}

// Identity derives the cache key for a request: method plus full URL.
// Headers are deliberately excluded, matching default HTTP cache match
// semantics.
func Identity(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + r.URL.String()
}

// Clone captures a response into an Entry and returns a replacement response
// whose body can still be consumed by the caller. The original body is fully
// read and closed.
func Clone(resp *http.Response) (Entry, *http.Response, error) {
	if resp == nil {
		return Entry{}, nil, fmt.Errorf("response is required")
	}

	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return Entry{}, nil, fmt.Errorf("read response body: %w", err)
	}
	if closeErr != nil {
		return Entry{}, nil, fmt.Errorf("close response body: %w", closeErr)
	}

	entry := Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return entry, resp, nil
}

// Response rebuilds an http.Response from a cached entry.
func (e Entry) Response() *http.Response {
	header := e.Header
	if header == nil {
		header = http.Header{}
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
	}
}
