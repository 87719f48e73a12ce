package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

const httpDuration = "ft_http_request_duration_seconds"

func RequestRate() *timeseries.PanelBuilder {
	return series("Request Rate", "HTTP requests per second", ThirdWidth,
		query{`ft:http_requests:rate5m`, "req/s"}).
		Unit("reqps")
}

// LatencyPercentiles plots p50, p95 and p99 request latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return series("Latency Percentiles", "HTTP request duration percentiles", ThirdWidth,
		query{quantile("0.50", httpDuration), "p50"},
		query{quantile("0.95", httpDuration), "p95"},
		query{quantile("0.99", httpDuration), "p99"}).
		Unit("s")
}

// ErrorRate plots 5xx responses as a percentage of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return series("Error Rate %", "HTTP 5xx error rate as percentage of total requests", ThirdWidth,
		query{`ft:http_errors:rate5m / ft:http_requests:rate5m * 100`, "error %"}).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
