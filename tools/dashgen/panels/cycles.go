package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

func CyclesRate() *timeseries.PanelBuilder {
	return series("Cycles / min", "Completed poll cycles per minute", ThirdWidth,
		query{`ft:cycles:rate5m * 60`, "cycles/min"})
}

// TargetFailures plots skipped targets per minute, one series per reason.
func TargetFailures() *timeseries.PanelBuilder {
	return series("Target Failures / min", "Watch targets skipped in a cycle, by reason", ThirdWidth,
		query{`sum by (reason) (ft:target_failures:rate5m) * 60`, "{{reason}}"}).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1))
}

func CycleDuration() *timeseries.PanelBuilder {
	return series("Cycle Duration (p95)", "95th percentile poll cycle duration", ThirdWidth,
		query{quantile("0.95", "ft_cycle_duration_seconds"), "p95"}).
		Unit("s")
}
