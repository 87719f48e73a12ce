// Package middleware provides Echo middleware for the float-tracker API.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/float-tracker/internal/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics returns Echo middleware that records request duration and status
// per route template. Probe and scrape endpoints only update the health
// gauges.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			switch path {
			case "/metrics":
				return next(c)
			case "/healthz", "/readyz":
				err := next(c)
				setProbeGauge(path, c.Response().Status)
				return err
			}

			start := time.Now()
			err := next(c)

			// Route templates keep label cardinality bounded for paths like
			// /api/v1/history/{target}.
			route := c.Path()
			if route == "" || route == "/*" {
				route = unmatchedRoute
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			metrics.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()

			return err
		}
	}
}

func setProbeGauge(path string, status int) {
	up := 0.0
	if status >= 200 && status < 300 {
		up = 1
	}
	if path == "/healthz" {
		metrics.HealthzUp.Set(up)
		return
	}
	metrics.ReadyzUp.Set(up)
}
