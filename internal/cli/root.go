// Package cli provides the command-line interface for the advisor.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/config"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Franchise marketing advisor",
	Long: `Builds a catalog of customer personas for storefront profiles, matches a
store to its persona and asks a generative model for a marketing strategy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		observability.Setup(os.Stderr, loaded.Log.Level, loaded.Log.Format)
		cfg = loaded
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default advisor.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(archiveCmd())
}
