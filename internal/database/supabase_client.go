// Package database provides the Supabase integration: PostgREST table access
// and GoTrue authentication. All business state lives in the external
// Supabase project; this client is the only write path to it.
package database

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/httputil"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Config holds the Supabase project credentials.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

// Client wraps the Supabase REST and auth APIs.
type Client struct {
	url        string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a Supabase client with a TLS 1.2 floor and bounded
// response reads.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	parsed, err := neturl.Parse(url)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("supabase URL must be a valid URL")
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("supabase URL must not include user info")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("supabase service role key is required")
	}

	transport := http.DefaultTransport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		cloned := base.Clone()
		if cloned.TLSClientConfig == nil {
			cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		} else if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
			cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
			cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
		}
		transport = cloned
	}

	return &Client{
		url:        url,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}, nil
}

// request performs a PostgREST call against a table and returns the body and
// the exact row count when requested via Prefer: count=exact.
func (c *Client) request(ctx context.Context, method, table string, body interface{}, query string, prefer string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.url, neturl.PathEscape(table))
	if query != "" {
		url += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, truncated, readErr := httputil.ReadAllWithLimit(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, 0, fmt.Errorf("read error response: %w", readErr)
		}
		msg := strings.TrimSpace(string(respBody))
		if truncated {
			msg += "...(truncated)"
		}
		return nil, 0, fmt.Errorf("supabase API error %d: %s", resp.StatusCode, msg)
	}

	respBody, err := httputil.ReadAllStrict(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	count := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	return respBody, count, nil
}

// parseContentRangeTotal extracts the total from a "0-49/1234" range header.
// Returns -1 when the total is absent or unparseable.
func parseContentRangeTotal(header string) int {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return -1
	}
	total := header[idx+1:]
	if total == "" || total == "*" {
		return -1
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return -1
	}
	return n
}

// Select fetches rows from a table. The query string must already be encoded
// in PostgREST syntax.
func (c *Client) Select(ctx context.Context, table, query string) ([]byte, error) {
	body, _, err := c.request(ctx, http.MethodGet, table, nil, query, "")
	return body, err
}

// SelectWithCount fetches rows and the exact total matching the filters.
func (c *Client) SelectWithCount(ctx context.Context, table, query string) ([]byte, int, error) {
	return c.request(ctx, http.MethodGet, table, nil, query, "count=exact")
}

// Count returns the exact number of rows matching the query without fetching
// row data.
func (c *Client) Count(ctx context.Context, table, query string) (int, error) {
	q := query
	if q != "" {
		q += "&"
	}
	q += "limit=1"
	_, count, err := c.request(ctx, http.MethodGet, table, nil, q, "count=exact")
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, fmt.Errorf("supabase did not return a row count")
	}
	return count, nil
}

// Insert writes one or more rows and returns the inserted representation.
func (c *Client) Insert(ctx context.Context, table string, body interface{}) ([]byte, error) {
	resp, _, err := c.request(ctx, http.MethodPost, table, body, "", "return=representation")
	return resp, err
}

// Upsert writes rows, merging on conflict, and returns the representation.
func (c *Client) Upsert(ctx context.Context, table string, body interface{}) ([]byte, error) {
	resp, _, err := c.request(ctx, http.MethodPost, table, body, "", "return=representation,resolution=merge-duplicates")
	return resp, err
}

// Update patches rows matching the query and returns the updated rows.
func (c *Client) Update(ctx context.Context, table string, body interface{}, query string) ([]byte, error) {
	resp, _, err := c.request(ctx, http.MethodPatch, table, body, query, "return=representation")
	return resp, err
}

// Delete removes rows matching the query.
func (c *Client) Delete(ctx context.Context, table, query string) error {
	_, _, err := c.request(ctx, http.MethodDelete, table, nil, query, "")
	return err
}

// Ping verifies the REST endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("supabase unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
