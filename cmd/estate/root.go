package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "estate",
	Short: "UK estate agency multi-agent system",
	Long: `estate runs a team of agents over the agency's property, buyer and
vendor data. The Orchestrator turns a natural-language request into an
execution plan, a human approves it, and the Scout, Intelligence, Content
and Compliance agents carry out the steps in order.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(dataCmd)
}
