// Package supabase fetches the remote product catalog from a Supabase-style
// REST endpoint. One logical call exists: fetch all products. No retry or
// backoff; the synchronizer issues a single attempt per refresh.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumapos/edge/internal/catalog"
)

const productsPath = "/rest/v1/products"

// Client is a remote catalog source.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a catalog client. Both the project URL and the anon key
// are required; a missing credential is a configuration error the caller
// should treat as fatal.
func NewClient(baseURL, anonKey string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, anonKey: anonKey, httpClient: httpClient}, nil
}

// FetchProducts fetches the full catalog in one call.
func (c *Client) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog client is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+productsPath+"?select=*", nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch catalog: %s", remoteMessage(body, resp.StatusCode))
	}

	var products []catalog.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return products, nil
}

// remoteMessage extracts the application error message from an error payload,
// falling back to the HTTP status.
func remoteMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return fmt.Sprintf("unexpected status %d", status)
}
