package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AlertsRate plots delivered alerts per second, one series per kind.
func AlertsRate() *timeseries.PanelBuilder {
	return series("Alerts Fired Rate", "Alerts delivered per second, by kind", ThirdWidth,
		query{"sum by (kind) (rate(" + onJob("ft_alerts_fired_total") + "[5m]))", "{{kind}}"})
}

// AlertsSuppressed counts alerts another instance had already claimed.
func AlertsSuppressed() *stat.PanelBuilder {
	return single("Suppressed (24h)", "Alerts skipped because another instance already sent them",
		TSHeight, StatWidth, daily("ft_alerts_suppressed_total"))
}

func NotificationLatency() *timeseries.PanelBuilder {
	return series("Notification Latency (p95)", "95th percentile Discord webhook latency", StatWidth,
		query{`ft:notification_duration:p95_5m`, "p95"}).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(1, 5))
}

func NotificationFailures() *stat.PanelBuilder {
	return single("Notification Failures (24h)", "Failed alert notification deliveries in the last 24 hours",
		TSHeight, StatWidth, daily("ft_notification_failures_total")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorMode(common.BigValueColorModeBackground)
}
