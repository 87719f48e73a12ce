package rates_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/float-tracker/internal/rates"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRate_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "positive", value: 0.91},
		{name: "zero", value: 0, wantErr: true},
		{name: "negative", value: -1, wantErr: true},
		{name: "NaN", value: math.NaN(), wantErr: true},
		{name: "+Inf", value: math.Inf(1), wantErr: true},
		{name: "-Inf", value: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := rates.NewRate(0.8)
			err := r.Set(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, rates.ErrInvalidRate)
				assert.InDelta(t, 0.8, r.Get(), 1e-12, "previous value is kept")
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.value, r.Get(), 1e-12)
		})
	}
}

func TestNewRate_InvalidInitialFallsBack(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, rates.DefaultRate, rates.NewRate(math.NaN()).Get(), 1e-12)
	assert.InDelta(t, rates.DefaultRate, rates.NewRate(0).Get(), 1e-12)
}

func TestRate_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := rates.NewRate(1)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				if i%2 == 0 {
					_ = r.Set(float64(j + 1))
				} else {
					assert.Positive(t, r.Get())
				}
			}
		}()
	}
	wg.Wait()
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	v, err := rates.StaticProvider{}.Latest(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, rates.DefaultRate, v, 1e-12)

	v, err = rates.StaticProvider{Value: 1.1}.Latest(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.1, v, 1e-12)

	_, err = rates.StaticProvider{Value: -2}.Latest(context.Background())
	require.Error(t, err)
}

func TestOpenExchangeRatesProvider_Latest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		currency   string
		status     int
		body       string
		want       float64
		errContain string
	}{
		{
			name:     "returns configured currency",
			currency: "eur",
			status:   http.StatusOK,
			body:     `{"base": "USD", "rates": {"EUR": 0.9123, "GBP": 0.79}}`,
			want:     0.9123,
		},
		{
			name:       "missing currency",
			currency:   "CHF",
			status:     http.StatusOK,
			body:       `{"base": "USD", "rates": {"EUR": 0.9}}`,
			errContain: "missing rate for CHF",
		},
		{
			name:       "api error body",
			currency:   "EUR",
			status:     http.StatusUnauthorized,
			body:       `{"error": true, "status": 401, "description": "Invalid App ID provided"}`,
			errContain: "Invalid App ID",
		},
		{
			name:       "zero rate is rejected",
			currency:   "EUR",
			status:     http.StatusOK,
			body:       `{"rates": {"EUR": 0}}`,
			errContain: "positive",
		},
		{
			name:       "undecodable body",
			currency:   "EUR",
			status:     http.StatusOK,
			body:       `<html>`,
			errContain: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/latest.json", r.URL.Path)
				assert.Equal(t, "app-123", r.URL.Query().Get("app_id"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := rates.NewOpenExchangeRatesProvider("app-123", tt.currency, rates.WithBaseURL(srv.URL))
			got, err := p.Latest(context.Background())
			if tt.errContain != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestOpenExchangeRatesProvider_MissingAppID(t *testing.T) {
	t.Parallel()

	_, err := rates.NewOpenExchangeRatesProvider("", "EUR").Latest(context.Background())
	require.Error(t, err)
}

type stubProvider struct {
	v   float64
	err error
}

func (s stubProvider) Latest(context.Context) (float64, error) { return s.v, s.err }

func TestRefresher_Refresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider rates.Provider
		want     float64
		wantErr  bool
	}{
		{name: "stores fetched rate", provider: stubProvider{v: 0.95}, want: 0.95},
		{name: "provider error keeps previous", provider: stubProvider{err: errors.New("timeout")}, want: 0.8, wantErr: true},
		{name: "invalid rate keeps previous", provider: stubProvider{v: math.Inf(1)}, want: 0.8, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := rates.NewRate(0.8)
			err := rates.NewRefresher(r, tt.provider, rates.WithLogger(quietLogger())).
				Refresh(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.InDelta(t, tt.want, r.Get(), 1e-12)
		})
	}
}
