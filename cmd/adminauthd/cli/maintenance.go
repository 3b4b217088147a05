package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newMaintenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run maintenance tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one maintenance pass and print the report",
		Long: `Unlock accounts whose lock has expired, purge expired refresh tokens from
the store and evict expired blacklist entries, once. Suitable for cron when
the server's own maintenance loop is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, backend, err := buildEngine(ctx, newLogger())
			if err != nil {
				return err
			}
			defer backend.close(ctx)
			defer engine.Close()

			report, err := engine.RunMaintenance(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	})
	return cmd
}
