package cmd

import (
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running server's poll phase, last cycle, and CSFloat quota",
		RunE: func(c *cobra.Command, _ []string) error {
			client := newClient()

			st, err := client.Status(c.Context())
			if err != nil {
				return err
			}
			q, err := client.Quota(c.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(c.OutOrStdout(), map[string]any{"status": st, "quota": q})
			}
			return printStatus(c.OutOrStdout(), st, q)
		},
	}
}
