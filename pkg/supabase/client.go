// Package supabase is a minimal client for the PostgREST API that fronts a hosted Supabase database.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	restPath = "/rest/v1"

	headerAPIKey = "apikey"
	headerPrefer = "Prefer"

	// Ask PostgREST for a single JSON object instead of a one-element array.
	singleObjectMediaType = "application/vnd.pgrst.object+json"

	preferUpsert = "resolution=merge-duplicates,return=representation"

	DefaultTimeout = 10 * time.Second

	// Error bodies larger than this are truncated before decoding.
	maxErrorBodyBytes = 64 << 10
)

var ErrMissingCredentials = errors.New("supabase: url and service key are required")

type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	restURL    string
	serviceKey string
	httpClient *http.Client
}

// APIError is the PostgREST error payload plus the HTTP status it arrived with.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether the store rejected the request itself (4xx).
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	key := strings.TrimSpace(cfg.ServiceKey)
	if base == "" || key == "" {
		return nil, ErrMissingCredentials
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("supabase: invalid url %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid url %q: expected http(s)://host", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		restURL:    base + restPath,
		serviceKey: key,
		httpClient: httpClient,
	}, nil
}

// Upsert inserts row into table, merging into the existing row that collides on onConflict,
// and decodes the stored row into out.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, row any, out any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("supabase: encode row: %w", err)
	}

	query := url.Values{}
	if onConflict != "" {
		query.Set("on_conflict", onConflict)
	}

	req, err := c.newRequest(ctx, http.MethodPost, table, query, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", singleObjectMediaType)
	req.Header.Set(headerPrefer, preferUpsert)

	return c.do(req, out)
}

// Ping issues a zero-row select against table to confirm the store is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context, table string) error {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("limit", "0")

	req, err := c.newRequest(ctx, http.MethodGet, table, query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, table string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.restURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}

	req.Header.Set(headerAPIKey, c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if len(raw) > 0 && json.Unmarshal(raw, apiErr) == nil && apiErr.Message != "" {
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
