package main

import "errors"

// KnownMetrics is the set of metric names exported by float-tracker plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"ft_http_request_duration_seconds": true,
	"ft_http_requests_total":           true,

	// Health metrics.
	"ft_healthz_up": true,
	"ft_readyz_up":  true,

	// Poll cycle metrics.
	"ft_cycles_total":                   true,
	"ft_cycle_duration_seconds":         true,
	"ft_target_failures_total":          true,
	"ft_listings_observed_total":        true,
	"ft_scheduler_next_cycle_timestamp": true,

	// Transition metrics.
	"ft_new_listings_total":  true,
	"ft_price_changes_total": true,

	// Alert metrics.
	"ft_alerts_fired_total":             true,
	"ft_alerts_suppressed_total":        true,
	"ft_notification_failures_total":    true,
	"ft_notification_duration_seconds":  true,
	"ft_history_listings":               true,
	"ft_history_persist_failures_total": true,
	"ft_history_load_failures_total":    true,

	// Exchange rate metrics.
	"ft_exchange_rate":                       true,
	"ft_exchange_rate_refresh_failures_total": true,

	// CSFloat API metrics.
	"ft_csfloat_api_calls_total":        true,
	"ft_csfloat_daily_usage":            true,
	"ft_csfloat_daily_limit_hits_total": true,

	// Recording rules.
	"ft:http_requests:rate5m":         true,
	"ft:http_errors:rate5m":           true,
	"ft:csfloat_api_calls:rate5m":     true,
	"ft:cycles:rate5m":                true,
	"ft:target_failures:rate5m":       true,
	"ft:new_listings:rate5m":          true,
	"ft:price_changes:rate5m":         true,
	"ft:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
