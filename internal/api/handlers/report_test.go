package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/engine"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

const m9 = "★ M9 Bayonet | Crimson Web"

type stubStats struct {
	gotPeriod time.Duration
	stats     domain.Stats
}

func (s *stubStats) Stats(period time.Duration) domain.Stats {
	s.gotPeriod = period
	return s.stats
}

type stubTargets []domain.WatchTarget

func (s stubTargets) Targets() []domain.WatchTarget { return s }

type stubHistory domain.History

func (s stubHistory) TargetSnapshot(target string) (domain.TargetHistory, bool) {
	th, ok := s[target]
	return th, ok
}

type stubStatus engine.Status

func (s stubStatus) Status() engine.Status { return engine.Status(s) }

func TestGetStats(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPeriod time.Duration
	}{
		{name: "default window", query: "", wantStatus: http.StatusOK, wantPeriod: 24 * time.Hour},
		{name: "explicit window", query: "?hours=6", wantStatus: http.StatusOK, wantPeriod: 6 * time.Hour},
		{name: "zero hours rejected", query: "?hours=0", wantStatus: http.StatusUnprocessableEntity},
		{name: "window too large", query: "?hours=10000", wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &stubStats{stats: domain.Stats{
				PeriodHours:  int(tt.wantPeriod.Hours()),
				Since:        since,
				NewOffers:    2,
				PriceChanges: 1,
				Lowest: []domain.LowestOffer{{
					Target:       m9,
					ListingID:    "42",
					Price:        120000,
					DisplayPrice: decimal.RequireFromString("1080"),
					Float:        0.08,
				}},
			}}

			_, api := humatest.New(t)
			handlers.RegisterStatsRoutes(api, handlers.NewStatsHandler(provider, "€"))

			resp := api.Get("/api/v1/stats" + tt.query)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			assert.Equal(t, tt.wantPeriod, provider.gotPeriod)

			var body handlers.StatsBody
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, 2, body.NewOffers)
			assert.Equal(t, 1, body.PriceChanges)
			require.Len(t, body.Lowest, 1)
			assert.Equal(t, "1080.00", body.Lowest[0].DisplayPrice)
			assert.Contains(t, body.Report, "Lowest offer for "+m9+": 1080.00€ (float 0.08)")
		})
	}
}

func TestListTargets(t *testing.T) {
	t.Parallel()

	targets := stubTargets{
		{Name: m9, DefIndex: 508, PaintIndex: 12, MaxPrice: 171600, MaxFloat: 0.15, Tier: "T1"},
	}

	_, api := humatest.New(t)
	handlers.RegisterTargetsRoutes(api, handlers.NewTargetsHandler(targets))

	resp := api.Get("/api/v1/targets")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Targets []domain.WatchTarget `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Targets, 1)
	assert.Equal(t, m9, body.Targets[0].Name)
	assert.Equal(t, "T1", body.Targets[0].Tier)
}

func TestGetHistory(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := stubHistory{
		m9: {
			"b": {Price: 900, Float: 0.1, Timestamp: at, Changes: []domain.ChangeEntry{{Price: 900, Float: 0.1, Timestamp: at}}},
			"a": {Price: 800, Float: 0.2, Timestamp: at, Changes: []domain.ChangeEntry{
				{Price: 1000, Float: 0.2, Timestamp: at.Add(-time.Hour)},
				{Price: 800, Float: 0.2, Timestamp: at},
			}},
		},
	}

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{name: "known target ordered by id", target: m9, wantStatus: http.StatusOK, wantIDs: []string{"a", "b"}},
		{name: "unknown target", target: "nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(h))

			resp := api.Get("/api/v1/history/" + url.PathEscape(tt.target))
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body handlers.HistoryBody
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.target, body.Target)

			ids := make([]string, 0, len(body.Listings))
			for _, l := range body.Listings {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Len(t, body.Listings[0].Changes, 2)
		})
	}
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	st := stubStatus{
		Phase:  engine.PhaseSleeping,
		Cycles: 3,
		Rate:   0.9,
		LastOutcomes: []engine.TargetOutcome{
			{Target: m9, Status: engine.StatusSkipped, Error: "rate limit: daily API limit reached"},
		},
		Listings: 7,
	}

	_, api := humatest.New(t)
	handlers.RegisterStatusRoutes(api, handlers.NewStatusHandler(st))

	resp := api.Get("/api/v1/status")
	require.Equal(t, http.StatusOK, resp.Code)

	var body engine.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, engine.PhaseSleeping, body.Phase)
	assert.Equal(t, int64(3), body.Cycles)
	assert.Equal(t, 7, body.Listings)
	require.Len(t, body.LastOutcomes, 1)
	assert.Equal(t, engine.StatusSkipped, body.LastOutcomes[0].Status)
	assert.Contains(t, body.LastOutcomes[0].Error, "daily API limit")
}
