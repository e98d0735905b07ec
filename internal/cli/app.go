package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/config"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/providers"
	"github.com/pratik-mahalle/stagingctl/internal/services"
)

// flagKeys maps command-line flags onto the config keys they override
var flagKeys = map[string]string{
	"log-level":    "logging.level",
	"verification": "sequencer.verification",
	"concurrency":  "sequencer.concurrency",
}

// app holds what every command needs once the configuration is loaded
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	// newClients builds the cloud clients; replaced in tests.
	newClients func(ctx context.Context) (environment.Clients, error)
	newProbe   func(ctx context.Context) (environment.AccountProbe, error)
}

func loadApp(cmd *cobra.Command) (*app, error) {
	v := config.New(cfgFile)
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, apperrors.Internal("failed to bind flag "+flag, err)
			}
		}
	}

	cfg, err := config.Read(v, cfgFile != "")
	if err != nil {
		return nil, err
	}

	// keep stdout clean for machine-readable output
	var out io.Writer = os.Stdout
	if getOutputFormat() != "table" {
		out = os.Stderr
	}
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})

	a := &app{cfg: cfg, logger: log}
	a.newClients = a.awsClients
	a.newProbe = a.awsProbe
	return a, nil
}

func (a *app) atlas() *providers.AtlasCLI {
	return providers.NewAtlasCLI(a.cfg.Atlas.Binary, a.cfg.Atlas.ProjectID, a.cfg.Atlas.Timeout)
}

func (a *app) awsClients(ctx context.Context) (environment.Clients, error) {
	awsCfg, err := providers.LoadAWSConfig(ctx, a.cfg.AWS)
	if err != nil {
		return environment.Clients{}, err
	}
	return providers.NewClients(awsCfg, a.atlas()), nil
}

func (a *app) awsProbe(ctx context.Context) (environment.AccountProbe, error) {
	awsCfg, err := providers.LoadAWSConfig(ctx, a.cfg.AWS)
	if err != nil {
		return nil, err
	}
	return providers.NewAccountProbe(awsCfg), nil
}

func (a *app) sequencerOptions() services.SequencerOptions {
	return services.SequencerOptions{
		Verification:         a.cfg.Sequencer.Verification,
		Waits:                a.cfg.WaitPolicies(),
		Concurrency:          a.cfg.Sequencer.Concurrency,
		SubmitRate:           a.cfg.Sequencer.SubmitRate,
		WarnOnClusterFailure: a.cfg.Atlas.WarnOnFailure,
	}
}

func (a *app) sequencer(ctx context.Context) (*services.SequencerService, error) {
	clients, err := a.newClients(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewSequencerService(clients, a.cfg.Inventory, a.sequencerOptions(), a.logger), nil
}
