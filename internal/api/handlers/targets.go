package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// TargetLister returns the configured watch-list.
type TargetLister interface {
	Targets() []domain.WatchTarget
}

// TargetsHandler serves GET /api/v1/targets.
type TargetsHandler struct {
	lister TargetLister
}

// NewTargetsHandler creates a TargetsHandler.
func NewTargetsHandler(l TargetLister) *TargetsHandler {
	return &TargetsHandler{lister: l}
}

// TargetsOutput is the response for GET /api/v1/targets.
type TargetsOutput struct {
	Body struct {
		Targets []domain.WatchTarget `json:"targets"`
	}
}

// ListTargets returns the watch-list in configuration order.
func (h *TargetsHandler) ListTargets(_ context.Context, _ *struct{}) (*TargetsOutput, error) {
	resp := &TargetsOutput{}
	resp.Body.Targets = h.lister.Targets()
	return resp, nil
}

// RegisterTargetsRoutes registers the targets endpoint with the Huma API.
func RegisterTargetsRoutes(api huma.API, h *TargetsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-targets",
		Method:      http.MethodGet,
		Path:        "/api/v1/targets",
		Summary:     "List watch targets",
		Tags:        []string{"targets"},
	}, h.ListTargets)
}
