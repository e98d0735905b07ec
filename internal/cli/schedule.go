package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/stagingctl/internal/api/handlers"
	"github.com/pratik-mahalle/stagingctl/internal/api/router"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run as a daemon that starts and stops the environment on cron schedules",
		Long: `schedule keeps running and triggers start and stop at the times given by
schedule.start and schedule.stop (standard 5-field cron, evaluated in
schedule.timezone). Runs never overlap. The daemon serves /healthz, /readyz,
/status and /metrics on schedule.listen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScheduler(ctx, current)
		},
	}
}

func runScheduler(ctx context.Context, a *app) error {
	seq, err := a.sequencer(ctx)
	if err != nil {
		return err
	}

	scheduler, err := worker.NewEnvScheduler(seq, a.cfg.Schedule, a.logger)
	if err != nil {
		return apperrors.InvalidConfig(err.Error(), nil)
	}
	if err := scheduler.Start(ctx); err != nil {
		return apperrors.Internal("failed to start scheduler", err)
	}

	srv := &http.Server{
		Addr: a.cfg.Schedule.Listen,
		Handler: router.New(a.logger, &router.Handlers{
			Health: handlers.NewHealthHandler(scheduler, a.logger),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.With("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal, waiting for any run in progress")
	case err := <-serveErr:
		runErr = apperrors.Internal("HTTP server failed", err)
	}

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.ErrorWithErr(err, "HTTP server shutdown failed")
	}
	return runErr
}
