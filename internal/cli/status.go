package cli

import (
	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/services"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the live state of every resource in the inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			clients, err := current.newClients(ctx)
			if err != nil {
				return err
			}
			report := services.NewStatusService(clients, current.cfg.Inventory, current.logger).Collect(ctx)

			if getOutputFormat() != "table" {
				return printOutput(report)
			}

			table := NewTable("CLASS", "RESOURCE", "STATE", "DETAIL")
			for _, rs := range report.Resources {
				state, detail := formatStatus(rs.State), rs.Detail
				if rs.Error != "" {
					state, detail = formatStatus("error"), truncate(rs.Error, 80)
				}
				table.AddRow(string(rs.Class), rs.ID, state, detail)
			}
			return table.Render()
		},
	}
}
