package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/float-tracker/internal/engine"
)

// StatusProvider reports the engine's current state.
type StatusProvider interface {
	Status() engine.Status
}

// StatusHandler serves GET /api/v1/status.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(p StatusProvider) *StatusHandler {
	return &StatusHandler{provider: p}
}

// StatusOutput is the response for GET /api/v1/status.
type StatusOutput struct {
	Body engine.Status
}

// GetStatus returns the poll phase, the last cycle's per-target outcomes, the
// current exchange rate, and the number of tracked listings.
func (h *StatusHandler) GetStatus(_ context.Context, _ *struct{}) (*StatusOutput, error) {
	return &StatusOutput{Body: h.provider.Status()}, nil
}

// RegisterStatusRoutes registers the status endpoint with the Huma API.
func RegisterStatusRoutes(api huma.API, h *StatusHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Get engine status",
		Tags:        []string{"status"},
	}, h.GetStatus)
}
