package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PingFunc checks one dependency.
type PingFunc func(ctx context.Context) error

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	names  []string
	checks []PingFunc
}

// NewHealthHandler creates a HealthHandler with no readiness checks.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// AddCheck registers a named readiness dependency such as the history
// database or the dedup Redis.
func (h *HealthHandler) AddCheck(name string, fn PingFunc) {
	h.names = append(h.names, name)
	h.checks = append(h.checks, fn)
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if every registered dependency answers, 503 otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx := c.Request().Context()

	resp := ReadyResponse{Status: "ready"}
	code := http.StatusOK

	for i, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			resp.Checks = append(resp.Checks, CheckResult{Name: h.names[i], Error: err.Error()})
		}
	}

	return c.JSON(code, resp)
}

// RegisterHealthRoutes mounts the probe endpoints on e. They bypass Huma so
// they never show up in the OpenAPI document.
func RegisterHealthRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
