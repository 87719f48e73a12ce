package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

func APICallsRate() *timeseries.PanelBuilder {
	return series("API Calls Rate", "CSFloat listings API calls per second", ThirdWidth,
		query{`ft:csfloat_api_calls:rate5m`, "calls/s"}).
		Unit("reqps")
}

// DailyUsage plots the rolling 24h call count against the daily limit.
func DailyUsage() *timeseries.PanelBuilder {
	limit := float64(CSFloatDailyLimit)
	return series("Daily Usage vs Limit",
		fmt.Sprintf("Rolling 24h CSFloat API call count (limit: %d)", CSFloatDailyLimit), ThirdWidth,
		query{onJob("ft_csfloat_daily_usage"), "usage"}).
		Thresholds(ThresholdsGreenYellowRed(limit*0.8, limit)).
		ColorScheme(ColorSchemeThresholds())
}

func LimitHits() *stat.PanelBuilder {
	return single("Limit Hits (24h)", "Times the CSFloat daily limit was reached in the last 24 hours",
		TSHeight, ThirdWidth, daily("ft_csfloat_daily_limit_hits_total")).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorMode(common.BigValueColorModeBackground)
}
