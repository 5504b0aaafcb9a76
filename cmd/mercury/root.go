package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mercury",
	Short: "Mercator Mercury - rate-limited URL redirect front end",
	Long: `Mercator Mercury is a URL redirect front end with a distributed
governance layer.

It resolves inbound request paths against a redirect rule table and
answers with 301/302 redirects, providing:
  - Distributed sliding-window rate limiting over Redis
  - A tiered cache (Redis primary, filesystem fallback) with read-repair
  - Seller lookup caching with asymmetric positive/negative TTLs
  - A persisted metrics aggregator with Prometheus exposition

For more information, visit: https://github.com/mercator-hq/mercury`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
