package rules

// RecordingRules returns pre-computed rates shared by the dashboard and the
// alert rules.
func RecordingRules() PrometheusRule {
	return New("ft-recording-rules", Group("ft-recording",
		Record("ft:http_requests:rate5m", `sum(rate(ft_http_requests_total[5m]))`),
		Record("ft:http_errors:rate5m", `sum(rate(ft_http_requests_total{status=~"5.."}[5m]))`),
		Record("ft:csfloat_api_calls:rate5m", `rate(ft_csfloat_api_calls_total[5m])`),
		Record("ft:cycles:rate5m", `rate(ft_cycles_total[5m])`),
		Record("ft:target_failures:rate5m", `sum by (reason) (rate(ft_target_failures_total[5m]))`),
		Record("ft:new_listings:rate5m", `rate(ft_new_listings_total[5m])`),
		Record("ft:price_changes:rate5m", `rate(ft_price_changes_total[5m])`),
		Record("ft:notification_duration:p95_5m", `histogram_quantile(0.95, sum(rate(ft_notification_duration_seconds_bucket[5m])) by (le))`),
	))
}
