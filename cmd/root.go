// Package cmd defines and implements the CLI commands for the regwatch
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regwatch",
		Short: "Fetches publication listings from financial regulators",
		Long: `regwatch fetches publication listings (press releases, regulations,
news) from regulator websites via HTML pages, RSS feeds and the chunked
FoeDB store, normalizes them into a common record shape and forwards
each publication to the configured downstream sink.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newFetchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
