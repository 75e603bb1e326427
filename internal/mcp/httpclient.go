package mcp

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

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/stats"
)

// HTTPClient implements DataSource by calling the RepFlow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body io.Reader) ([]byte, int, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("httpclient: read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// get fetches path and decodes the JSON body into out. A 404 wraps
// models.ErrNotFound.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	body, status, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, models.ErrNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, status, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func periodParams(period stats.Period) url.Values {
	v := url.Values{}
	v.Set("period", string(period))
	return v
}

func (c *HTTPClient) ListPrograms(ctx context.Context) ([]models.Program, error) {
	var programs []models.Program
	if err := c.get(ctx, "/api/v1/programs", nil, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

func (c *HTTPClient) GetProgram(ctx context.Context, id string) (models.Program, error) {
	var p models.Program
	err := c.get(ctx, "/api/v1/programs/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *HTTPClient) ActiveProgress(ctx context.Context) (*models.ActiveProgress, error) {
	var p models.ActiveProgress
	err := c.get(ctx, "/api/v1/progress", nil, &p)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) CompletedPrograms(ctx context.Context) ([]models.CompletedProgram, error) {
	var history []models.CompletedProgram
	if err := c.get(ctx, "/api/v1/progress/completed", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *HTTPClient) Totals(ctx context.Context) (models.Totals, error) {
	var t models.Totals
	err := c.get(ctx, "/api/v1/stats", nil, &t)
	return t, err
}

func (c *HTTPClient) Summary(ctx context.Context, period stats.Period) (stats.PeriodSummary, error) {
	var s stats.PeriodSummary
	err := c.get(ctx, "/api/v1/stats/summary", periodParams(period), &s)
	return s, err
}

func (c *HTTPClient) WeightHistory(ctx context.Context, period stats.Period) ([]stats.WeightPoint, error) {
	var points []stats.WeightPoint
	if err := c.get(ctx, "/api/v1/stats/weight", periodParams(period), &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) WorkoutCounts(ctx context.Context, period stats.Period) ([]stats.Bucket, error) {
	var buckets []stats.Bucket
	if err := c.get(ctx, "/api/v1/stats/workouts", periodParams(period), &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (c *HTTPClient) WorkoutLog(ctx context.Context) ([]models.WorkoutLogEntry, error) {
	var entries []models.WorkoutLogEntry
	if err := c.get(ctx, "/api/v1/stats/log", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) AddWeight(ctx context.Context, date time.Time, kg float64) error {
	payload := map[string]any{"weight": kg}
	if !date.IsZero() {
		payload["date"] = date.Format(time.RFC3339)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpclient: encode weight: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, "/api/v1/stats/weight", nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return fmt.Errorf("httpclient: %s: %w", strings.TrimSpace(string(body)), models.ErrInvalid)
	}
	return fmt.Errorf("httpclient: /api/v1/stats/weight returned %d: %s", status, body)
}

func (c *HTTPClient) Session(ctx context.Context) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.get(ctx, "/api/v1/session", nil, &snap)
	return snap, err
}
