// Package handlers implements the read-only HTTP reporting API for
// float-tracker.
package handlers

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// CheckResult is the outcome of one readiness dependency check.
type CheckResult struct {
	Name  string `json:"name"            example:"history"`
	Error string `json:"error,omitempty" example:"connection refused"`
}

// ReadyResponse is the readiness response body.
type ReadyResponse struct {
	Status string        `json:"status" example:"ready"`
	Checks []CheckResult `json:"checks,omitempty"`
}
