package csfloat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyLimitReached is returned when the daily request budget is spent.
var ErrDailyLimitReached = errors.New("daily API limit reached")

// RateLimiter paces marketplace requests with a token bucket and caps them
// with a daily quota. The quota window is rolling: it resets 24 hours after
// it opened. A request's quota slot is reserved before pacing and handed back
// if pacing is abandoned, so concurrent callers never overrun the quota.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64
	nowFunc  func() time.Time

	mu      sync.Mutex
	daily   int64
	resetAt time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the clock.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter allows perSecond requests with the given burst and at most
// maxDaily requests per window. A maxDaily of zero or less disables the quota.
func NewRateLimiter(perSecond float64, burst int, maxDaily int64, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	window, err := r.reserve()
	if err != nil {
		return err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.release(window)
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// reserve claims a quota slot and returns the window it was claimed in.
func (r *RateLimiter) reserve() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now := r.nowFunc(); now.After(r.resetAt) {
		r.daily = 0
		r.resetAt = now.Add(24 * time.Hour)
	}
	if r.maxDaily > 0 && r.daily >= r.maxDaily {
		return time.Time{}, fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.daily, r.maxDaily)
	}
	r.daily++
	return r.resetAt, nil
}

// release returns a slot unless its window has already rolled over.
func (r *RateLimiter) release(window time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetAt.Equal(window) && r.daily > 0 {
		r.daily--
	}
}

// MaxDaily returns the configured daily quota; zero or less means unlimited.
func (r *RateLimiter) MaxDaily() int64 {
	return r.maxDaily
}

// DailyCount returns the requests made in the current window.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.daily
}

// Remaining returns the requests left in the current window, or -1 when
// the quota is disabled.
func (r *RateLimiter) Remaining() int64 {
	if r.maxDaily <= 0 {
		return -1
	}
	return max(r.maxDaily-r.DailyCount(), 0)
}

// ResetAt returns when the current window closes.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}
