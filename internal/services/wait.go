package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
)

var errNotReady = errors.New("target state not reached")

// States from which an awaited target can no longer be reached
var (
	databaseFailStates = map[string][]string{
		environment.StateAvailable: {"deleted", "deleting", "failed", "incompatible-restore", "incompatible-parameters"},
		environment.StateStopped:   {"deleted", "deleting", "failed"},
	}
	computeFailStates = map[string][]string{
		environment.StateRunning: {"shutting-down", "terminated", "stopping"},
		environment.StateStopped: {"pending", "terminated"},
	}
)

// checkFunc reports whether the target was reached and the state observed
type checkFunc func(ctx context.Context) (done bool, state string, err error)

// await polls check under policy: the first check is immediate, then one
// check per Delay until MaxAttempts checks have been made. Running out of
// attempts yields a TIMEOUT error; any error returned by check ends the
// wait at once.
func await(ctx context.Context, log *logger.Logger, policy environment.WaitPolicy, resource, target string, check checkFunc) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}

	var (
		attempt int
		last    string
	)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		done, state, err := check(ctx)
		if err != nil {
			return err
		}
		last = state
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"state":   state,
		}).Debugf("Polled %s", resource)
		if done {
			return nil
		}
		return retry.RetryableError(errNotReady)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotReady):
		return apperrors.Timeout(resource, target, attempts).WithDetails(map[string]string{"last_state": last})
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "wait interrupted").WithResource(resource)
	default:
		return err
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// awaitDatabases waits for each instance in turn to reach target
func (s *SequencerService) awaitDatabases(ctx context.Context, log *logger.Logger, ids []string, target string) error {
	if len(ids) == 0 {
		log.Info("No database accepted a state change; nothing to wait for")
		return nil
	}
	failStates := databaseFailStates[target]

	for _, id := range ids {
		l := log.WithResource(id)
		l.Infof("Waiting for RDS instance '%s' to become %s", id, target)

		err := await(ctx, l, s.opts.Waits.Database, id, target, func(ctx context.Context) (bool, string, error) {
			state, err := s.clients.Databases.InstanceStatus(ctx, id)
			if err != nil {
				return false, "", withResource(err, environment.ClassDatabase, id)
			}
			if contains(failStates, state) {
				return false, state, apperrors.UnexpectedState(id, target, state)
			}
			return state == target, state, nil
		})
		if err != nil {
			return err
		}
		l.Infof("RDS instance '%s' is now %s", id, target)
	}
	return nil
}

// awaitCompute waits for every instance of the batch to reach target
func (s *SequencerService) awaitCompute(ctx context.Context, log *logger.Logger, target string) error {
	ids := s.inventory.ComputeInstances
	resource := strings.Join(ids, ",")
	failStates := computeFailStates[target]
	l := log.WithResource(resource)

	err := await(ctx, l, s.opts.Waits.Compute, resource, target, func(ctx context.Context) (bool, string, error) {
		states, err := s.clients.Compute.InstanceStates(ctx, ids)
		if err != nil {
			return false, "", withResource(err, environment.ClassCompute, resource)
		}
		done := true
		summary := make([]string, 0, len(ids))
		for _, id := range ids {
			state := states[id]
			if contains(failStates, state) {
				return false, state, apperrors.UnexpectedState(id, target, state)
			}
			if state != target {
				done = false
			}
			summary = append(summary, id+"="+state)
		}
		return done, strings.Join(summary, " "), nil
	})
	if err != nil {
		return err
	}
	l.Infof("EC2 instances are now %s", target)
	return nil
}

// awaitService waits for a container service to settle at count tasks
func (s *SequencerService) awaitService(ctx context.Context, log *logger.Logger, svc environment.ContainerService, count int32) error {
	id := svc.ID()
	l := log.WithResource(id)

	err := await(ctx, l, s.opts.Waits.Container, id, environment.StateStable, func(ctx context.Context) (bool, string, error) {
		status, err := s.clients.Containers.DescribeService(ctx, svc.Cluster, svc.Service)
		if err != nil {
			return false, "", withResource(err, environment.ClassContainerService, id)
		}
		if status.Status == "DRAINING" || status.Status == "INACTIVE" {
			return false, status.Status, apperrors.UnexpectedState(id, environment.StateStable, status.Status)
		}
		return status.Stable(count), status.Status, nil
	})
	if err != nil {
		return err
	}
	l.Infof("ECS service '%s' is stable at %d tasks", id, count)
	return nil
}
