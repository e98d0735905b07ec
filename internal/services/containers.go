package services

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/metrics"
)

// targetCount is the task count a service is driven to in dir
func targetCount(svc environment.ContainerService, dir environment.Direction) int32 {
	if dir == environment.DirectionStop {
		return 0
	}
	return svc.DesiredCount
}

// forEachService runs fn for every container service with at most
// Concurrency calls in flight. A failure does not cancel the other calls;
// all outcomes are collected and joined. Used for submissions, which the
// orchestrator cannot roll back.
func (s *SequencerService) forEachService(ctx context.Context, fn func(ctx context.Context, svc environment.ContainerService) error) error {
	services := s.inventory.ContainerServices
	errs := make([]error, len(services))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, svc := range services {
		g.Go(func() error {
			errs[i] = fn(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *SequencerService) scaleContainers(ctx context.Context, log *logger.Logger, dir environment.Direction) error {
	log.Infof("Submitting %d ECS updates (concurrency %d)", len(s.inventory.ContainerServices), s.opts.Concurrency)

	return s.forEachService(ctx, func(ctx context.Context, svc environment.ContainerService) error {
		id := svc.ID()
		count := targetCount(svc, dir)
		l := log.WithResource(id)

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return withResource(err, environment.ClassContainerService, id)
			}
		}

		l.Infof("Updating ECS service '%s' to desired count %d", id, count)
		err := s.clients.Containers.UpdateDesiredCount(ctx, svc, count)
		metrics.RecordSubmission(string(environment.ClassContainerService), err == nil)
		if err != nil {
			err = withResource(err, environment.ClassContainerService, id)
			l.ErrorWithErr(err, "ECS update failed")
			return err
		}
		l.Infof("ECS service '%s' update submitted", id)
		return nil
	})
}

// awaitContainers waits for every service to settle, Concurrency at a time.
// The first failed wait cancels the others and is the error reported.
func (s *SequencerService) awaitContainers(ctx context.Context, log *logger.Logger, dir environment.Direction) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, svc := range s.inventory.ContainerServices {
		g.Go(func() error {
			return s.awaitService(gctx, log, svc, targetCount(svc, dir))
		})
	}
	return g.Wait()
}
