package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/config"
	"github.com/donaldgifford/float-tracker/internal/engine"
	"github.com/donaldgifford/float-tracker/internal/history"
	"github.com/donaldgifford/float-tracker/internal/rates"
)

func statsCmd() *cobra.Command {
	var (
		hours       int
		historyFile string
	)

	c := &cobra.Command{
		Use:   "stats",
		Short: "Show new offers, price changes, and lowest offers for a window",
		Example: `  float-tracker stats
  float-tracker stats --hours 6 --output json
  float-tracker stats --history-file history.json`,
		RunE: func(c *cobra.Command, _ []string) error {
			if hours < 1 {
				return fmt.Errorf("--hours must be at least 1")
			}

			var body *handlers.StatsBody
			var err error
			if historyFile != "" {
				body, err = offlineStats(c.Context(), historyFile, hours)
			} else {
				body, err = newClient().Stats(c.Context(), hours)
			}
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(c.OutOrStdout(), body)
			}
			_, err = fmt.Fprint(c.OutOrStdout(), body.Report)
			return err
		},
	}

	c.Flags().IntVar(&hours, "hours", 24, "window length in hours")
	c.Flags().StringVar(&historyFile, "history-file", "",
		"compute from a history file instead of the API (uses --config for targets and currency when present)")
	return c
}

// offlineStats computes stats from a history file. Target order and the
// display currency come from the config file when it loads; otherwise all
// targets are listed alphabetically at the default rate.
func offlineStats(ctx context.Context, path string, hours int) (*handlers.StatsBody, error) {
	raw, err := history.NewFileBackend(path).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	h, err := history.Decode(raw)
	if err != nil {
		return nil, err
	}

	var targets []string
	rate, symbol := rates.DefaultRate, "€"
	if cfg, err := config.Load(cfgFile); err == nil {
		for i := range cfg.Targets {
			targets = append(targets, cfg.Targets[i].Name)
		}
		rate, symbol = cfg.Exchange.DefaultRate, cfg.Exchange.Symbol
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	st := engine.ComputeStats(h, targets, since, hours, rate)

	body := &handlers.StatsBody{
		PeriodHours:  st.PeriodHours,
		Since:        st.Since,
		NewOffers:    st.NewOffers,
		PriceChanges: st.PriceChanges,
		Report:       engine.FormatStats(&st, symbol),
	}
	for i := range st.Lowest {
		lo := &st.Lowest[i]
		body.Lowest = append(body.Lowest, handlers.LowestOfferBody{
			Target:       lo.Target,
			ListingID:    lo.ListingID,
			Price:        lo.Price,
			DisplayPrice: lo.DisplayPrice.StringFixed(2),
			Float:        lo.Float,
		})
	}
	return body, nil
}
