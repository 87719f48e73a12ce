// Package csfloat fetches buy-now listings from the CSFloat marketplace API.
package csfloat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/donaldgifford/float-tracker/internal/metrics"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

const defaultBaseURL = "https://csfloat.com"

var (
	// ErrMissingToken is returned when no API token is configured.
	ErrMissingToken = errors.New("csfloat token not set")
	// ErrAPI is returned when the API answers with an error envelope.
	ErrAPI = errors.New("csfloat api error")
	// ErrMalformedResponse is returned when a listing row cannot be read.
	ErrMalformedResponse = errors.New("malformed csfloat response")
)

// Client fetches the current listings matching a watch target.
type Client interface {
	Listings(ctx context.Context, target *domain.WatchTarget) ([]domain.Observation, error)
}

// ListingsClient implements Client against the CSFloat HTTP API.
type ListingsClient struct {
	token       string
	baseURL     string
	client      *http.Client
	rateLimiter *RateLimiter
}

// Option configures the ListingsClient.
type Option func(*ListingsClient)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(c *ListingsClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ListingsClient) {
		c.client = hc
	}
}

// WithRateLimiter makes every request wait on r first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *ListingsClient) {
		c.rateLimiter = r
	}
}

// NewListingsClient creates a CSFloat client authenticating with token.
func NewListingsClient(token string, opts ...Option) *ListingsClient {
	c := &ListingsClient{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimiter returns the configured limiter, or nil.
func (c *ListingsClient) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

type apiError struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

type listingsResponse struct {
	Data []apiListing `json:"data"`
}

type apiListing struct {
	ID          flexID   `json:"id"`
	Price       *int64   `json:"price"`
	Description *string  `json:"description"`
	Item        *apiItem `json:"item"`
}

type apiItem struct {
	FloatValue *float64 `json:"float_value"`
}

// flexID accepts listing ids encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// Listings returns the buy-now listings for target, cheapest first.
func (c *ListingsClient) Listings(
	ctx context.Context,
	target *domain.WatchTarget,
) ([]domain.Observation, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.CSFloatDailyLimitHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.CSFloatDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}
	metrics.CSFloatAPICallsTotal.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listingsURL(target), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing listings request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// The error envelope can arrive with any status, so check it first.
	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil && envelope.Code != nil && *envelope.Code != 0 {
		return nil, fmt.Errorf("%w: code %d: %s", ErrAPI, *envelope.Code, envelope.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("csfloat API error (status %d): %s", resp.StatusCode, string(body))
	}

	return decodeListings(body)
}

func (c *ListingsClient) listingsURL(t *domain.WatchTarget) string {
	params := url.Values{}
	params.Set("sort_by", "lowest_price")
	params.Set("min_float", strconv.FormatFloat(t.MinFloat, 'f', -1, 64))
	params.Set("max_float", strconv.FormatFloat(t.MaxFloat, 'f', -1, 64))
	params.Set("def_index", strconv.Itoa(t.DefIndex))
	params.Set("paint_index", strconv.Itoa(t.PaintIndex))
	params.Set("type", "buy_now")

	return c.baseURL + "/api/v1/listings?" + params.Encode()
}

func decodeListings(body []byte) ([]domain.Observation, error) {
	var rows []apiListing

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	} else {
		var resp listingsResponse
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		rows = resp.Data
	}

	out := make([]domain.Observation, 0, len(rows))
	for i := range rows {
		obs, err := rows[i].toObservation()
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func (l *apiListing) toObservation() (domain.Observation, error) {
	switch {
	case l.ID == "":
		return domain.Observation{}, fmt.Errorf("%w: missing id", ErrMalformedResponse)
	case l.Price == nil:
		return domain.Observation{}, fmt.Errorf("%w: listing %s missing price", ErrMalformedResponse, l.ID)
	case l.Item == nil || l.Item.FloatValue == nil:
		return domain.Observation{}, fmt.Errorf("%w: listing %s missing float value", ErrMalformedResponse, l.ID)
	}

	return domain.Observation{
		ID:         string(l.ID),
		Price:      *l.Price,
		FloatValue: *l.Item.FloatValue,
		Note:       l.Description,
	}, nil
}
