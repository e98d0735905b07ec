package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/services"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the credentials can reach every service a run uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			probe, err := current.newProbe(ctx)
			if err != nil {
				return err
			}
			var clusters environment.ClusterController
			if len(current.cfg.Inventory.ManagedClusters) > 0 {
				clusters = current.atlas()
			}

			report := services.NewPreflightService(probe, clusters, current.logger).Run(ctx)

			if getOutputFormat() != "table" {
				if err := printOutput(report); err != nil {
					return err
				}
			} else {
				table := NewTable("CHECK", "RESULT", "DETAIL")
				for _, c := range report.Checks {
					result, detail := formatStatus("ok"), c.Detail
					switch {
					case !c.OK && c.Optional:
						result, detail = "[~] skipped", c.Error
					case !c.OK:
						result, detail = formatStatus("failed"), c.Error
					}
					table.AddRow(c.Name, result, truncate(detail, 80))
				}
				if err := table.Render(); err != nil {
					return err
				}
				for _, c := range report.Checks {
					if c.Hint != "" {
						fmt.Fprintf(stdout, "hint (%s): %s\n", c.Name, c.Hint)
					}
				}
			}

			if !report.Passed() {
				return apperrors.New(apperrors.ErrCodeProviderAPI, "connection check failed")
			}
			return nil
		},
	}
}
