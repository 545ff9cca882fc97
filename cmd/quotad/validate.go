package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/quota/pkg/cli"
	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/quota"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, including environment
overrides, and print the enabled quota windows.

Examples:
  quotad validate --config /etc/quotad/quotad.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.WrapConfigError(cfgFile, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	for _, line := range describeLimits(cfg) {
		fmt.Fprintf(out, "  %s\n", line)
	}
	fmt.Fprintf(out, "  upstream: %s\n", cfg.Server.Upstream)
	if cfg.Reports.Enabled {
		fmt.Fprintf(out, "  reports: %s\n", cfg.Reports.Backend)
	}
	if cfg.Stats.Enabled {
		fmt.Fprintf(out, "  stats: %s\n", cfg.Stats.Backend)
	}
	return nil
}

// describeLimits returns one line per enabled window, e.g.
// "ipaddr day: 3600s".
func describeLimits(cfg *config.Config) []string {
	limits, err := quota.LimitsFromMap(cfg.Quota.Limits)
	if err != nil {
		return []string{fmt.Sprintf("invalid limits: %v", err)}
	}

	var lines []string
	for _, dim := range []struct {
		name   quota.Dimension
		limits quota.WindowLimits
	}{
		{quota.DimensionIPAddr, limits.IPAddr},
		{quota.DimensionToken, limits.Token},
	} {
		for _, w := range quota.Windows {
			if v := dim.limits.For(w); v > 0 {
				lines = append(lines, fmt.Sprintf("%s %s: %gs", dim.name, w, v))
			}
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "no quota windows enabled")
	}
	return lines
}
