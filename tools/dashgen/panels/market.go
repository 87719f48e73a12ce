package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// MarketActivity compares new listings with recorded price changes.
func MarketActivity() *timeseries.PanelBuilder {
	return series("Market Activity / h", "New listings and price changes per hour", TSWidth,
		query{`ft:new_listings:rate5m * 3600`, "new listings"},
		query{`ft:price_changes:rate5m * 3600`, "price changes"})
}

func HistorySize() *stat.PanelBuilder {
	return single("History Records", "Listing records held in the history store",
		StatHeight, StatWidth, onJob("ft_history_listings"))
}

func ExchangeRate() *stat.PanelBuilder {
	return single("Exchange Rate", "Display-currency units per USD",
		StatHeight, StatWidth, onJob("ft_exchange_rate"))
}
