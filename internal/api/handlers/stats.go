package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/float-tracker/internal/engine"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// StatsProvider computes statistics over a trailing window.
type StatsProvider interface {
	Stats(period time.Duration) domain.Stats
}

// StatsHandler serves GET /api/v1/stats.
type StatsHandler struct {
	stats  StatsProvider
	symbol string
}

// NewStatsHandler creates a StatsHandler. symbol is the display currency
// symbol used in the text report.
func NewStatsHandler(s StatsProvider, symbol string) *StatsHandler {
	return &StatsHandler{stats: s, symbol: symbol}
}

// StatsInput selects the window.
type StatsInput struct {
	Hours int `query:"hours" default:"24" minimum:"1" maximum:"720" doc:"Window length in hours"`
}

// LowestOfferBody is the cheapest recently active listing of a target.
type LowestOfferBody struct {
	Target       string  `json:"target"        example:"★ M9 Bayonet | Crimson Web"`
	ListingID    string  `json:"listing_id"    example:"812345678901234567"`
	Price        int64   `json:"price"         example:"142500"                      doc:"Listing price in USD cents"`
	DisplayPrice string  `json:"display_price" example:"1234.05"                     doc:"Price in the display currency"`
	Float        float64 `json:"float"         example:"0.0712"`
}

// StatsBody is the stats response body.
type StatsBody struct {
	PeriodHours  int               `json:"period_hours"  example:"24"`
	Since        time.Time         `json:"since"`
	NewOffers    int               `json:"new_offers"    example:"3"`
	PriceChanges int               `json:"price_changes" example:"1"`
	Lowest       []LowestOfferBody `json:"lowest"`
	Report       string            `json:"report"        doc:"Plain-text rendering of the statistics"`
}

// StatsOutput is the response for GET /api/v1/stats.
type StatsOutput struct {
	Body StatsBody
}

// GetStats returns new offer and price change counts plus the lowest offer
// per target for the requested window.
func (h *StatsHandler) GetStats(_ context.Context, input *StatsInput) (*StatsOutput, error) {
	st := h.stats.Stats(time.Duration(input.Hours) * time.Hour)

	body := StatsBody{
		PeriodHours:  st.PeriodHours,
		Since:        st.Since,
		NewOffers:    st.NewOffers,
		PriceChanges: st.PriceChanges,
		Lowest:       make([]LowestOfferBody, 0, len(st.Lowest)),
		Report:       engine.FormatStats(&st, h.symbol),
	}
	for i := range st.Lowest {
		lo := &st.Lowest[i]
		body.Lowest = append(body.Lowest, LowestOfferBody{
			Target:       lo.Target,
			ListingID:    lo.ListingID,
			Price:        lo.Price,
			DisplayPrice: lo.DisplayPrice.StringFixed(2),
			Float:        lo.Float,
		})
	}

	return &StatsOutput{Body: body}, nil
}

// RegisterStatsRoutes registers the stats endpoint with the Huma API.
func RegisterStatsRoutes(api huma.API, h *StatsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get listing statistics",
		Description: "Counts new offers and price changes in the window and reports the lowest recent offer per target.",
		Tags:        []string{"stats"},
	}, h.GetStats)
}
