package rules

// AlertRules returns the operational alerts for float-tracker.
func AlertRules() PrometheusRule {
	return New("ft-alerts", Group("ft-alerts",
		Alert("FtDown", `absent(up{job="float-tracker"})`, "2m", SeverityCritical).
			Describe("Float Tracker is down",
				"The float-tracker job has been absent for more than 2 minutes."),
		Alert("FtReadinessDown", `ft_readyz_up == 0`, "2m", SeverityCritical).
			Describe("Float Tracker readiness check is failing",
				"The readiness probe has been reporting not-ready for more than 2 minutes."),
		Alert("FtHighErrorRate", `ft:http_errors:rate5m / ft:http_requests:rate5m > 0.05`, "5m", SeverityWarning).
			Describe("High HTTP error rate on Float Tracker",
				"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes."),
		Alert("FtCyclesStalled", `ft:cycles:rate5m == 0`, "10m", SeverityCritical).
			Describe("Poll cycles have stopped completing",
				"No poll cycle has completed in the last 10 minutes."),
		Alert("FtTargetFailures", `sum(ft:target_failures:rate5m) > 0`, "15m", SeverityWarning).
			Describe("Watch targets are being skipped",
				"At least one watch target has failed every cycle for more than 15 minutes."),
		Alert("FtCSFloatQuotaHigh", `ft_csfloat_daily_usage > 4000`, "5m", SeverityWarning).
			Describe("CSFloat API daily usage is above 80% of the quota",
				"Daily CSFloat API usage has exceeded 4000 calls (default limit is 5000)."),
		Alert("FtCSFloatLimitReached", `increase(ft_csfloat_daily_limit_hits_total[5m]) > 0`, "0m", SeverityCritical).
			Describe("CSFloat API daily limit has been reached",
				"The CSFloat daily quota has been exhausted. Polling is paused until the window rolls over."),
		Alert("FtNotificationFailures", `increase(ft_notification_failures_total[5m]) > 0`, "1m", SeverityWarning).
			Describe("Notification delivery failures detected",
				"One or more alert notifications (Discord webhooks) have failed to send."),
		Alert("FtHistoryPersistFailures", `increase(ft_history_persist_failures_total[15m]) > 0`, "0m", SeverityWarning).
			Describe("History writes are failing",
				"Listing history could not be persisted. Changes since the last successful write will be lost on restart."),
	))
}
