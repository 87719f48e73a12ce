// Package rates holds the process-wide USD to display-currency exchange rate
// and the providers that refresh it.
package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/donaldgifford/float-tracker/internal/metrics"
)

// DefaultRate is the USD to EUR rate used when no provider is configured.
const DefaultRate = 0.866

// ErrInvalidRate is returned when a rate is not a positive finite number.
var ErrInvalidRate = errors.New("exchange rate must be positive and finite")

// Rate is a lock-free holder for the current exchange rate. Reads never
// block and always see a valid value.
type Rate struct {
	bits atomic.Uint64
}

// NewRate returns a Rate holding initial. An invalid initial value falls
// back to DefaultRate.
func NewRate(initial float64) *Rate {
	r := &Rate{}
	if Validate(initial) != nil {
		initial = DefaultRate
	}
	r.bits.Store(math.Float64bits(initial))
	metrics.ExchangeRate.Set(initial)
	return r
}

// Get returns the current rate.
func (r *Rate) Get() float64 {
	return math.Float64frombits(r.bits.Load())
}

// Set replaces the rate. Invalid values are rejected and the previous value
// is kept.
func (r *Rate) Set(v float64) error {
	if err := Validate(v); err != nil {
		return err
	}
	r.bits.Store(math.Float64bits(v))
	metrics.ExchangeRate.Set(v)
	return nil
}

// Validate reports whether v can be used as an exchange rate.
func Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, v)
	}
	return nil
}

// Provider fetches the latest USD to display-currency rate.
type Provider interface {
	Latest(ctx context.Context) (float64, error)
}

// StaticProvider always returns the same rate.
type StaticProvider struct {
	Value float64
}

// Latest implements Provider.
func (p StaticProvider) Latest(_ context.Context) (float64, error) {
	if p.Value == 0 {
		return DefaultRate, nil
	}
	return p.Value, Validate(p.Value)
}

// Refresher pulls a new rate from a Provider into a Rate.
type Refresher struct {
	rate     *Rate
	provider Provider
	log      *slog.Logger
}

// RefresherOption configures the Refresher.
type RefresherOption func(*Refresher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		r.log = l
	}
}

// NewRefresher creates a Refresher writing into rate.
func NewRefresher(rate *Rate, p Provider, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		rate:     rate,
		provider: p,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh fetches and stores the latest rate. On failure the previous rate
// stays in place and the error is returned after being logged.
func (r *Refresher) Refresh(ctx context.Context) error {
	v, err := r.provider.Latest(ctx)
	if err == nil {
		err = r.rate.Set(v)
	}
	if err != nil {
		metrics.ExchangeRateRefreshFailuresTotal.Inc()
		r.log.Error("exchange rate refresh failed, keeping previous rate",
			"rate", r.rate.Get(),
			"error", err,
		)
		return fmt.Errorf("refreshing exchange rate: %w", err)
	}

	r.log.Info("exchange rate refreshed", "rate", v)
	return nil
}
