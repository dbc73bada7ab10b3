package main

import (
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "feed-optimizer",
		Short: "Least-cost feed formulation",
		Long: `feed-optimizer finds the cheapest mixture of feed ingredients that meets
nutrient limits and nutrient ratios.

The formulation is solved exactly with the simplex method, which also reports
shadow prices, or approximately with a particle swarm.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newSolveCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}
