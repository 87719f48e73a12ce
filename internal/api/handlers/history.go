package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// HistoryReader returns a copy of one target's listing history.
type HistoryReader interface {
	TargetSnapshot(target string) (domain.TargetHistory, bool)
}

// HistoryHandler serves GET /api/v1/history/{target}.
type HistoryHandler struct {
	reader HistoryReader
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(r HistoryReader) *HistoryHandler {
	return &HistoryHandler{reader: r}
}

// HistoryInput names the target.
type HistoryInput struct {
	Target string `path:"target" doc:"Watch target name" example:"★ Karambit | Crimson Web"`
}

// ListingBody is one tracked listing with its price log.
type ListingBody struct {
	ID        string               `json:"id"`
	Price     int64                `json:"price"     doc:"Current price in USD cents"`
	Float     float64              `json:"float"`
	Timestamp time.Time            `json:"timestamp" doc:"Time of the last mutation"`
	Changes   []domain.ChangeEntry `json:"changes"   doc:"Creation entry followed by every price change"`
}

// HistoryBody is the history response body.
type HistoryBody struct {
	Target   string        `json:"target"`
	Listings []ListingBody `json:"listings"`
}

// HistoryOutput is the response for GET /api/v1/history/{target}.
type HistoryOutput struct {
	Body HistoryBody
}

// GetHistory returns every listing tracked for a target, ordered by id.
func (h *HistoryHandler) GetHistory(_ context.Context, input *HistoryInput) (*HistoryOutput, error) {
	target := input.Target
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}

	th, ok := h.reader.TargetSnapshot(target)
	if !ok {
		return nil, huma.Error404NotFound("no history for target " + target)
	}

	ids := make([]string, 0, len(th))
	for id := range th {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	body := HistoryBody{Target: target, Listings: make([]ListingBody, 0, len(ids))}
	for _, id := range ids {
		rec := th[id]
		body.Listings = append(body.Listings, ListingBody{
			ID:        id,
			Price:     rec.Price,
			Float:     rec.Float,
			Timestamp: rec.Timestamp,
			Changes:   rec.Changes,
		})
	}

	return &HistoryOutput{Body: body}, nil
}

// RegisterHistoryRoutes registers the history endpoint with the Huma API.
func RegisterHistoryRoutes(api huma.API, h *HistoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/history/{target}",
		Summary:     "Get listing history for a target",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetHistory)
}
