package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/metrics"
	"github.com/pratik-mahalle/stagingctl/internal/services"
)

func newRunCmd(dir environment.Direction) *cobra.Command {
	var dryRun bool

	short := "Start the staging environment"
	if dir == environment.DirectionStop {
		short = "Stop the staging environment"
	}

	cmd := &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				seq := services.NewSequencerService(environment.Clients{}, current.cfg.Inventory, current.sequencerOptions(), current.logger)
				return printPlan(seq.Plan(dir), current.cfg.WaitPolicies())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDirection(ctx, current, dir)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the stage plan without calling any API")
	cmd.Flags().String("verification", "", "verification mode: none, basic, extended (overrides config)")
	cmd.Flags().Int("concurrency", 0, "concurrent ECS updates (overrides config)")

	return cmd
}

func runDirection(ctx context.Context, a *app, dir environment.Direction) error {
	seq, err := a.sequencer(ctx)
	if err != nil {
		return err
	}

	report, runErr := seq.Run(ctx, dir)
	if report != nil {
		printSummary(a.logger, report)
		if getOutputFormat() != "table" {
			if err := printOutput(report); err != nil {
				return err
			}
		}
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.With("path", path).WithError(err).Warn("Failed to write metrics textfile")
		}
	}

	return runErr
}

func printSummary(log *logger.Logger, report *environment.RunReport) {
	noun := "startup"
	if report.Direction == environment.DirectionStop {
		noun = "shutdown"
	}

	l := log.WithFields(map[string]interface{}{
		"run_id":       report.RunID,
		"verification": string(report.Verification),
	})
	l.Info(strings.Repeat("=", 50))
	if report.Success {
		l.Infof("Staging environment %s completed successfully", noun)
	} else {
		failed := report.FailedStage()
		l.WithFields(map[string]interface{}{
			"stage":    failed.Stage.Name,
			"resource": failed.Resource,
		}).Error(fmt.Sprintf("Staging environment %s failed: %s", noun, failed.Error))
	}
	l.Infof("Total execution time: %.2f seconds", report.Elapsed.Seconds())
	l.Info(strings.Repeat("=", 50))
}

func printPlan(plan []environment.Stage, waits environment.WaitPolicies) error {
	if getOutputFormat() != "table" {
		return printOutput(plan)
	}

	table := NewTable("#", "STAGE", "LAYER", "CLASS", "ACTION", "AWAIT")
	for i, st := range plan {
		await := "-"
		if st.Await != "" {
			await = fmt.Sprintf("%s (max %s)", st.Await, policyFor(st.Class, waits).Ceiling())
		}
		table.AddRow(fmt.Sprint(i+1), st.Name, st.Layer.String(), string(st.Class), string(st.Action), await)
	}
	return table.Render()
}

func policyFor(class environment.ResourceClass, waits environment.WaitPolicies) environment.WaitPolicy {
	switch class {
	case environment.ClassDatabase:
		return waits.Database
	case environment.ClassCompute:
		return waits.Compute
	default:
		return waits.Container
	}
}
