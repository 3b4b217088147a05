package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigLintCmd())
	return cmd
}

// ---------- config lint ----------

func newConfigLintCmd() *cobra.Command {
	var failOn string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report risky settings in the effective configuration",
		Example: `  adminauthd config lint
  adminauthd config lint --fail-on warn   # non-zero exit on WARN or HIGH`,
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := parseSeverity(failOn)
			if err != nil {
				return err
			}
			cfg, err := engineConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			result := cfg.Lint()
			if len(result) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no findings")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), result.String())
			return result.AsError(min)
		},
	}

	cmd.Flags().StringVar(&failOn, "fail-on", "high", "lowest severity that fails the command: info, warn or high")
	return cmd
}

func parseSeverity(s string) (adminauth.LintSeverity, error) {
	switch strings.ToLower(s) {
	case "info":
		return adminauth.LintInfo, nil
	case "warn":
		return adminauth.LintWarn, nil
	case "high":
		return adminauth.LintHigh, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if f := viper.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# config file: %s\n", f)
			} else {
				fmt.Fprintln(out, "# config file: (none found, using defaults)")
			}

			settings := maskSecrets(viper.AllSettings())
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

var secretKeys = []string{"secret", "password", "uri"}

func maskSecrets(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]any:
			out[k] = maskSecrets(val)
		case time.Duration:
			out[k] = val.String()
		default:
			out[k] = v
			if isSecretKey(k) && fmt.Sprint(v) != "" {
				out[k] = "********"
			}
		}
	}
	return out
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
