package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/mercury/pkg/config"
	"mercator-hq/mercury/pkg/redirect"
)

var validateFlags struct {
	rulesOnly bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and redirect rules",
	Long: `Load the configuration file and the redirect rules it references,
reporting every validation error rather than stopping at the first.

Examples:
  # Validate config and rules
  mercury validate --config /etc/mercury/config.yaml

  # Validate only the redirect rules file
  mercury validate --rules-only`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.rulesOnly, "rules-only", false, "validate only the redirect rules file")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Printf("✗ %s\n", fe)
			}
			return fmt.Errorf("%d configuration error(s)", len(verr.Errors))
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !validateFlags.rulesOnly {
		fmt.Println("✓ Configuration valid")
	}

	table, err := redirect.LoadRules(cfg.Redirects.RulesPath, cfg.Redirects.DefaultStatus)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return fmt.Errorf("redirect rules invalid")
	}
	fmt.Printf("✓ Redirect rules valid (%d rules)\n", table.Len())

	return nil
}
