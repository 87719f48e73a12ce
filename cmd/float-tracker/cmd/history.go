package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/history"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

func historyCmd() *cobra.Command {
	var historyFile string

	c := &cobra.Command{
		Use:   "history <target>",
		Short: "Show every tracked listing for a target",
		Args:  cobra.ExactArgs(1),
		Example: `  float-tracker history "★ Karambit | Crimson Web"
  float-tracker history "★ M9 Bayonet | Crimson Web" --history-file history.json`,
		RunE: func(c *cobra.Command, args []string) error {
			target := args[0]

			var body *handlers.HistoryBody
			if historyFile != "" {
				raw, err := history.NewFileBackend(historyFile).Load(c.Context())
				if err != nil {
					return fmt.Errorf("reading history file: %w", err)
				}
				h, err := history.Decode(raw)
				if err != nil {
					return err
				}
				th, ok := h[target]
				if !ok {
					return fmt.Errorf("no history for target %q", target)
				}
				body = historyBody(target, th)
			} else {
				var err error
				if body, err = newClient().History(c.Context(), target); err != nil {
					return err
				}
			}

			if jsonOutput() {
				return outputJSON(c.OutOrStdout(), body)
			}
			if len(body.Listings) == 0 {
				_, err := fmt.Fprintf(c.OutOrStdout(), "No listings tracked for %q.\n", target)
				return err
			}
			return printHistory(c.OutOrStdout(), body)
		},
	}

	c.Flags().StringVar(&historyFile, "history-file", "", "read a history file instead of the API")
	return c
}

func sortedKeys(th domain.TargetHistory) []string {
	ids := make([]string, 0, len(th))
	for id := range th {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
