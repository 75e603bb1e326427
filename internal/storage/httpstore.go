package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore implements Store against the RepFlow storage API
// (/api/v1/storage/{key}). It plays the role of the host's cloud store
// when the app runs away from the database.
type HTTPStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

// Compile-time checks: *HTTPStore satisfies Store and Lister.
var (
	_ Store  = (*HTTPStore)(nil)
	_ Lister = (*HTTPStore)(nil)
)

// NewHTTPStore creates an HTTPStore targeting the given base URL.
func NewHTTPStore(baseURL, apiKey string) *HTTPStore {
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    3,
		backoff:    time.Second,
	}
}

type storageValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Get fetches a key. A 404 is a missing key, not an error.
func (c *HTTPStore) Get(ctx context.Context, key string) (string, bool, error) {
	var out storageValue
	status, err := c.do(ctx, http.MethodGet, url.PathEscape(key), nil, &out)
	if err != nil {
		return "", false, err
	}
	if status == http.StatusNotFound {
		return "", false, nil
	}
	return out.Value, true, nil
}

// Set writes a key. Empty values are sent as DELETE.
func (c *HTTPStore) Set(ctx context.Context, key, value string) error {
	if value == "" {
		_, err := c.do(ctx, http.MethodDelete, url.PathEscape(key), nil, nil)
		return err
	}
	body, err := json.Marshal(storageValue{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("httpstore: marshal %s: %w", key, err)
	}
	_, err = c.do(ctx, http.MethodPut, url.PathEscape(key), body, nil)
	return err
}

// Keys lists the remote keys starting with prefix.
func (c *HTTPStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if _, err := c.do(ctx, http.MethodGet, "?prefix="+url.QueryEscape(prefix), nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// do sends one request for the escaped path below /api/v1/storage/,
// retrying transport errors and 5xx responses with exponential backoff.
// It returns the final status code.
func (c *HTTPStore) do(ctx context.Context, method, key string, body []byte, out any) (int, error) {
	u := c.baseURL + "/api/v1/storage/" + key

	var lastErr error
	for attempt := range c.retries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return 0, fmt.Errorf("httpstore: create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("httpstore: %s %s: %w", method, key, err)
			continue
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
			return resp.StatusCode, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("httpstore: %s %s returned %d: %s", method, key, resp.StatusCode, data)
			continue
		case resp.StatusCode >= 300:
			return resp.StatusCode, fmt.Errorf("httpstore: %s %s returned %d: %s", method, key, resp.StatusCode, data)
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("httpstore: decode %s: %w", key, err)
			}
		}
		return resp.StatusCode, nil
	}
	return 0, fmt.Errorf("after %d attempts: %w", c.retries, lastErr)
}
