package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultOXRBaseURL = "https://openexchangerates.org"
	oxrLatestPath     = "/api/latest.json"
)

// OpenExchangeRatesProvider reads USD-based rates from openexchangerates.org.
type OpenExchangeRatesProvider struct {
	appID    string
	currency string
	baseURL  string
	client   *http.Client
}

// OXROption configures the OpenExchangeRatesProvider.
type OXROption func(*OpenExchangeRatesProvider)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) OXROption {
	return func(p *OpenExchangeRatesProvider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) OXROption {
	return func(p *OpenExchangeRatesProvider) {
		p.client = c
	}
}

// NewOpenExchangeRatesProvider creates a provider returning the USD rate
// for currency, e.g. "EUR".
func NewOpenExchangeRatesProvider(
	appID, currency string,
	opts ...OXROption,
) *OpenExchangeRatesProvider {
	p := &OpenExchangeRatesProvider{
		appID:    appID,
		currency: strings.ToUpper(currency),
		baseURL:  defaultOXRBaseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type oxrLatestResp struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	Error       bool               `json:"error"`
	Status      int                `json:"status"`
	Description string             `json:"description"`
}

// Latest implements Provider.
func (p *OpenExchangeRatesProvider) Latest(ctx context.Context) (float64, error) {
	if p.appID == "" {
		return 0, errors.New("openexchangerates: missing app id")
	}

	u, err := url.Parse(p.baseURL + oxrLatestPath)
	if err != nil {
		return 0, fmt.Errorf("openexchangerates: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("app_id", p.appID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("openexchangerates: create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("openexchangerates: do request: %w", err)
	}
	defer resp.Body.Close()

	var body oxrLatestResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("openexchangerates: decode response (status %d): %w", resp.StatusCode, err)
	}

	if body.Error || resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openexchangerates: status %d: %s", resp.StatusCode, body.Description)
	}

	v, ok := body.Rates[p.currency]
	if !ok {
		return 0, fmt.Errorf("openexchangerates: missing rate for %s", p.currency)
	}
	if err := Validate(v); err != nil {
		return 0, fmt.Errorf("openexchangerates: %w", err)
	}
	return v, nil
}
