package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/engine"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.Status(context.Background())
	require.ErrorIs(t, err, ErrServerNotRunning)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "huma problem detail",
			body:    `{"title":"Not Found","status":404,"detail":"no history for target x"}`,
			wantErr: "API error (HTTP 404): no history for target x",
		},
		{
			name:    "plain body",
			body:    "gateway down\n",
			wantErr: "API error (HTTP 404): gateway down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).History(context.Background(), "x")
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestClient_Stats(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stats", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("hours"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handlers.StatsBody{PeriodHours: 12, NewOffers: 4, Report: "📊"})
	}))
	defer srv.Close()

	st, err := New(srv.URL + "/").Stats(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 12, st.PeriodHours)
	assert.Equal(t, 4, st.NewOffers)
	assert.Equal(t, "📊", st.Report)
}

func TestClient_History(t *testing.T) {
	t.Parallel()

	const target = "★ Karambit | Crimson Web"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/history/"+target, r.URL.Path)
		_ = json.NewEncoder(w).Encode(handlers.HistoryBody{
			Target:   target,
			Listings: []handlers.ListingBody{{ID: "1", Price: 100}},
		})
	}))
	defer srv.Close()

	h, err := New(srv.URL).History(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, target, h.Target)
	require.Len(t, h.Listings, 1)
	assert.Equal(t, int64(100), h.Listings[0].Price)
}

func TestClient_StatusAndQuota(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(engine.Status{Phase: engine.PhaseFetching, CurrentTarget: "m9"})
	})
	mux.HandleFunc("/api/v1/quota", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(handlers.QuotaBody{DailyLimit: 5000, DailyUsed: 10, Remaining: 4990})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFetching, st.Phase)
	assert.Equal(t, "m9", st.CurrentTarget)

	q, err := c.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4990), q.Remaining)
}

func TestClient_DecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}
