// Package cmd implements the CLI commands for float-tracker.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/float-tracker/internal/api/client"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "float-tracker",
	Short: "Watch CSFloat listings and alert on new offers and price changes",
	Long: "float-tracker polls CSFloat for a configured watch-list of items, keeps a\n" +
		"history of every matching listing, and sends a Discord alert the first time\n" +
		"a listing appears within bounds or whenever a tracked listing changes price.",
	SilenceUsage: true,
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().String("api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		statsCmd(),
		historyCmd(),
		statusCmd(),
		migrateCmd(),
		versionCmd(),
	)
}

// initViper lets FLOAT_TRACKER_API_URL and FLOAT_TRACKER_OUTPUT stand in
// for the flags.
func initViper() {
	viper.SetEnvPrefix("FLOAT_TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("api_url"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
