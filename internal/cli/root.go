package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string
	current      *app
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagingctl",
		Short: "Start and stop the staging environment",
		Long: `stagingctl brings the staging environment up and down in dependency order:
databases and managed clusters first, then the bastion host, then the ECS
services, and the reverse when stopping. Each step can wait for the
resources to settle before the next one begins.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == cmd.Root() {
				return nil
			}
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return apperrors.InvalidArgument("a command is required: start or stop")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./stagingctl.yaml or $HOME/.stagingctl/stagingctl.yaml)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(environment.DirectionStart))
	cmd.AddCommand(newRunCmd(environment.DirectionStop))
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newScheduleCmd())

	return cmd
}

// Execute runs the command line. Usage errors print the usage text to stderr.
func Execute() error {
	return execute(rootCmd, os.Args[1:], os.Stderr)
}

func execute(root *cobra.Command, args []string, stderr io.Writer) error {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return nil
	}

	fmt.Fprintln(stderr, "Error:", err)
	if code := apperrors.CodeOf(err); code == "" || code == apperrors.ErrCodeInvalidArgument {
		fmt.Fprint(stderr, root.UsageString())
	}
	return err
}

func getOutputFormat() string {
	switch outputFormat {
	case "json", "yaml":
		return outputFormat
	default:
		return "table"
	}
}
