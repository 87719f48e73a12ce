// Package main implements a mock CSFloat API server for local development.
// It serves listings from a JSON fixture and a fixed openexchangerates.org
// rate so float-tracker can run without real credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

type listingsResponse struct {
	Data []json.RawMessage `json:"data"`
}

type listingSummary struct {
	Price int64 `json:"price"`
	Item  struct {
		DefIndex   int     `json:"def_index"`
		PaintIndex int     `json:"paint_index"`
		FloatValue float64 `json:"float_value"`
	} `json:"item"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/listings.json", "path to listings fixture")
	drift := flag.Int64("drift", 0, "cents subtracted from every price per request, to simulate price drops")
	rate := flag.Float64("rate", 0.866, "rate returned for every currency by /api/latest.json")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "listings", len(fixture.Data))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/listings", listingsHandler(logger, fixture, *drift))
	mux.HandleFunc("GET /api/latest.json", latestRatesHandler(logger, *rate))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock CSFloat server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*listingsResponse, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var resp listingsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &resp, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func listingsHandler(logger *slog.Logger, fixture *listingsResponse, drift int64) http.HandlerFunc {
	// Pre-parse filter fields; the raw JSON is served with only the price
	// rewritten.
	type indexedListing struct {
		raw     map[string]json.RawMessage
		summary listingSummary
	}
	listings := make([]indexedListing, 0, len(fixture.Data))
	for _, raw := range fixture.Data {
		var l indexedListing
		//nolint:errcheck,gosec // fixture data is trusted; field extraction is best-effort
		json.Unmarshal(raw, &l.summary)
		//nolint:errcheck,gosec // fixture data is trusted
		json.Unmarshal(raw, &l.raw)
		listings = append(listings, l)
	}

	var requests atomic.Int64

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			logger.Warn("listings request missing Authorization header")
			writeJSON(w, http.StatusUnauthorized, apiError{Code: 1, Message: "you must be logged in to access this endpoint"})
			return
		}

		q := r.URL.Query()
		defIndex, err1 := strconv.Atoi(q.Get("def_index"))
		paintIndex, err2 := strconv.Atoi(q.Get("paint_index"))
		if err1 != nil || err2 != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Code: 4, Message: "def_index and paint_index are required"})
			return
		}
		minFloat := parseFloat(q.Get("min_float"), 0)
		maxFloat := parseFloat(q.Get("max_float"), 1)

		n := requests.Add(1) - 1
		offset := drift * n

		type priced struct {
			price int64
			raw   map[string]json.RawMessage
		}
		var matched []priced
		for _, l := range listings {
			s := l.summary
			if s.Item.DefIndex != defIndex || s.Item.PaintIndex != paintIndex {
				continue
			}
			if s.Item.FloatValue < minFloat || s.Item.FloatValue > maxFloat {
				continue
			}
			matched = append(matched, priced{price: max(s.Price-offset, 1), raw: l.raw})
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].price < matched[j].price })

		resp := listingsResponse{Data: make([]json.RawMessage, 0, len(matched))}
		for _, m := range matched {
			out := make(map[string]json.RawMessage, len(m.raw))
			for k, v := range m.raw {
				out[k] = v
			}
			out["price"] = json.RawMessage(strconv.FormatInt(m.price, 10))
			b, err := json.Marshal(out)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, apiError{Code: 500, Message: err.Error()})
				return
			}
			resp.Data = append(resp.Data, b)
		}

		writeJSON(w, http.StatusOK, resp)
		logger.Info("listings",
			"def_index", defIndex,
			"paint_index", paintIndex,
			"returned", len(resp.Data),
			"request", n,
		)
	}
}

func latestRatesHandler(logger *slog.Logger, rate float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("app_id") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error":       true,
				"status":      http.StatusUnauthorized,
				"message":     "missing_app_id",
				"description": "No App ID provided.",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"base":      "USD",
			"timestamp": time.Now().Unix(),
			"rates": map[string]float64{
				"USD": 1,
				"EUR": rate,
				"GBP": rate,
			},
		})
		logger.Info("issued mock rates", "rate", rate)
	}
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
