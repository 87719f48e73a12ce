// Package client provides a thin HTTP client for the float-tracker reporting
// API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/engine"
)

// ErrServerNotRunning is returned when nothing listens at the base URL.
var ErrServerNotRunning = errors.New("API server not running")

// Client is a thin HTTP client for the float-tracker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client targeting the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Stats returns statistics over the last hours.
func (c *Client) Stats(ctx context.Context, hours int) (*handlers.StatsBody, error) {
	var body handlers.StatsBody
	if err := c.get(ctx, "/api/v1/stats?hours="+strconv.Itoa(hours), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Status returns the engine status.
func (c *Client) Status(ctx context.Context) (*engine.Status, error) {
	var st engine.Status
	if err := c.get(ctx, "/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// History returns every listing tracked for target.
func (c *Client) History(ctx context.Context, target string) (*handlers.HistoryBody, error) {
	var body handlers.HistoryBody
	if err := c.get(ctx, "/api/v1/history/"+url.PathEscape(target), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Quota returns the CSFloat request budget.
func (c *Client) Quota(ctx context.Context) (*handlers.QuotaBody, error) {
	var body handlers.QuotaBody
	if err := c.get(ctx, "/api/v1/quota", &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w at %s", ErrServerNotRunning, c.baseURL)
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, apiErrorDetail(respBody))
	}

	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiErrorDetail extracts the detail of a Huma problem response, falling
// back to the raw body.
func apiErrorDetail(body []byte) string {
	var problem struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Detail != "" {
		return problem.Detail
	}
	return strings.TrimSpace(string(body))
}
