package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/gauge"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// probe is an up/down stat: red at 0, green at 1.
func probe(title, description, metric string) *stat.PanelBuilder {
	return single(title, description, StatHeight, StatWidth, metric).
		Thresholds(ThresholdsRedGreen(1)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

func HealthzStat() *stat.PanelBuilder {
	return probe("Healthz", "Health check status (1 = ok, 0 = failing)", "ft_healthz_up")
}

func ReadyzStat() *stat.PanelBuilder {
	return probe("Readyz", "Readiness check status (1 = ready, 0 = not ready)", "ft_readyz_up")
}

// QuotaGauge shows CSFloat API usage as a percentage of the daily limit.
func QuotaGauge() *gauge.PanelBuilder {
	return gauge.NewPanelBuilder().
		Title("CSFloat Quota %").
		Description("Daily CSFloat API usage as percentage of limit").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(fmt.Sprintf("ft_csfloat_daily_usage / %d * 100", CSFloatDailyLimit), "", "A")).
		Unit("percent").
		Min(0).
		Max(100).
		Thresholds(ThresholdsGreenYellowRed(80, 95)).
		ColorScheme(ColorSchemeThresholds())
}

// NextCycleStat counts down to the next scheduled poll cycle.
func NextCycleStat() *stat.PanelBuilder {
	return single("Next Cycle", "Time until the next scheduled poll cycle", StatHeight, StatWidth,
		onJob("ft_scheduler_next_cycle_timestamp")+" - time()").
		Unit("s").
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
