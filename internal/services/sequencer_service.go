package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/metrics"
)

// SequencerOptions parameterizes a SequencerService
type SequencerOptions struct {
	Verification environment.VerificationMode
	Waits        environment.WaitPolicies
	// Concurrency bounds simultaneous container updates; 1 means sequential.
	Concurrency int
	// SubmitRate caps container updates per second; 0 disables the cap.
	SubmitRate float64
	// WarnOnClusterFailure logs a warning when a managed cluster command exits non-zero.
	WarnOnClusterFailure bool
}

// SequencerService toggles the environment stage by stage
type SequencerService struct {
	clients   environment.Clients
	inventory environment.Inventory
	opts      SequencerOptions
	limiter   *rate.Limiter
	logger    *logger.Logger
}

// NewSequencerService creates a new sequencer service
func NewSequencerService(clients environment.Clients, inv environment.Inventory, opts SequencerOptions, log *logger.Logger) *SequencerService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if !opts.Verification.IsValid() {
		opts.Verification = environment.VerificationExtended
	}

	var limiter *rate.Limiter
	if opts.SubmitRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.SubmitRate), 1)
	}

	return &SequencerService{
		clients:   clients,
		inventory: inv,
		opts:      opts,
		limiter:   limiter,
		logger:    log,
	}
}

// run carries the state of one invocation
type run struct {
	direction environment.Direction
	logger    *logger.Logger
	// stoppedDatabases are the instances that accepted a stop request
	stoppedDatabases []string
}

// Run executes the plan of the given direction. The first failing stage
// aborts the run; later stages are reported as skipped.
func (s *SequencerService) Run(ctx context.Context, dir environment.Direction) (*environment.RunReport, error) {
	if _, err := environment.ParseDirection(string(dir)); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	report := &environment.RunReport{
		RunID:        uuid.NewString(),
		Direction:    dir,
		Verification: s.opts.Verification,
		StartedAt:    time.Now(),
	}
	r := &run{
		direction: dir,
		logger: s.logger.WithFields(map[string]interface{}{
			"run_id":    report.RunID,
			"direction": string(dir),
		}),
	}

	if dir == environment.DirectionStart {
		r.logger.Info("Initiating staging environment startup")
	} else {
		r.logger.Info("Initiating staging environment shutdown")
	}

	var runErr error
	for i, stage := range s.Plan(dir) {
		if runErr != nil {
			report.Stages = append(report.Stages, environment.StageResult{Stage: stage, Status: environment.StageSkipped})
			continue
		}

		log := r.logger.WithStage(stage.Name)
		log.Infof("--- Step %d: %s ---", i+1, describeStage(stage))

		start := time.Now()
		err := s.execute(ctx, r, stage)
		result := environment.StageResult{Stage: stage, Duration: time.Since(start)}

		if err != nil {
			result.Status = environment.StageFailed
			result.Resource = apperrors.ResourceOf(err)
			result.Error = err.Error()
			kind := failureKind(err)
			metrics.RecordStageFailure(string(dir), stage.Name, kind)
			log.WithFields(map[string]interface{}{
				"resource": result.Resource,
				"kind":     kind,
			}).ErrorWithErr(err, "Stage failed")
			runErr = fmt.Errorf("stage %s: %w", stage.Name, err)
		} else {
			result.Status = environment.StageSucceeded
		}

		metrics.RecordStage(string(dir), stage.Name, string(result.Status), result.Duration)
		report.Stages = append(report.Stages, result)
	}

	report.Elapsed = time.Since(report.StartedAt)
	report.Success = runErr == nil
	metrics.RecordRun(string(dir), report.Success, report.Elapsed)

	return report, runErr
}

// Plan returns the stages of a direction in execution order. Starting brings
// up the data layer, then the access layer, then the application layer;
// stopping walks the layers in reverse. Classes with no inventory are left out.
func (s *SequencerService) Plan(dir environment.Direction) []environment.Stage {
	verify := s.opts.Verification != environment.VerificationNone
	inv := s.inventory

	stage := func(name string, class environment.ResourceClass, action environment.Action, await string) environment.Stage {
		return environment.Stage{
			Name:      name,
			Direction: dir,
			Layer:     class.Layer(),
			Class:     class,
			Action:    action,
			Await:     await,
		}
	}

	var plan []environment.Stage
	add := func(ok bool, st environment.Stage) {
		if ok {
			plan = append(plan, st)
		}
	}

	switch dir {
	case environment.DirectionStart:
		add(len(inv.Databases) > 0, stage("start-databases", environment.ClassDatabase, environment.ActionStart, ""))
		add(len(inv.ManagedClusters) > 0, stage("resume-managed-clusters", environment.ClassManagedCluster, environment.ActionResume, ""))
		add(verify && len(inv.Databases) > 0, stage("await-databases-available", environment.ClassDatabase, environment.ActionAwait, environment.StateAvailable))
		add(len(inv.ComputeInstances) > 0, stage("start-compute", environment.ClassCompute, environment.ActionStart, ""))
		add(verify && len(inv.ComputeInstances) > 0, stage("await-compute-running", environment.ClassCompute, environment.ActionAwait, environment.StateRunning))
		add(len(inv.ContainerServices) > 0, stage("scale-up-containers", environment.ClassContainerService, environment.ActionScale, ""))
		add(verify && len(inv.ContainerServices) > 0, stage("await-containers-stable", environment.ClassContainerService, environment.ActionAwait, environment.StateStable))
	case environment.DirectionStop:
		add(len(inv.ContainerServices) > 0, stage("scale-down-containers", environment.ClassContainerService, environment.ActionScale, ""))
		add(verify && len(inv.ContainerServices) > 0, stage("await-containers-stable", environment.ClassContainerService, environment.ActionAwait, environment.StateStable))
		add(len(inv.ComputeInstances) > 0, stage("stop-compute", environment.ClassCompute, environment.ActionStop, ""))
		add(verify && len(inv.ComputeInstances) > 0, stage("await-compute-stopped", environment.ClassCompute, environment.ActionAwait, environment.StateStopped))
		add(len(inv.Databases) > 0, stage("stop-databases", environment.ClassDatabase, environment.ActionStop, ""))
		add(verify && len(inv.Databases) > 0, stage("await-databases-stopped", environment.ClassDatabase, environment.ActionAwait, environment.StateStopped))
		add(len(inv.ManagedClusters) > 0, stage("pause-managed-clusters", environment.ClassManagedCluster, environment.ActionPause, ""))
	}
	return plan
}

func (s *SequencerService) execute(ctx context.Context, r *run, stage environment.Stage) error {
	log := r.logger.WithStage(stage.Name)

	switch stage.Class {
	case environment.ClassDatabase:
		switch stage.Action {
		case environment.ActionStart:
			return s.startDatabases(ctx, log)
		case environment.ActionStop:
			return s.stopDatabases(ctx, r, log)
		case environment.ActionAwait:
			ids := s.inventory.Databases
			if r.direction == environment.DirectionStop {
				ids = r.stoppedDatabases
			}
			return s.awaitDatabases(ctx, log, ids, stage.Await)
		}
	case environment.ClassManagedCluster:
		s.commandClusters(ctx, log, stage.Action)
		return nil
	case environment.ClassCompute:
		switch stage.Action {
		case environment.ActionStart, environment.ActionStop:
			return s.toggleCompute(ctx, log, stage.Action)
		case environment.ActionAwait:
			return s.awaitCompute(ctx, log, stage.Await)
		}
	case environment.ClassContainerService:
		switch stage.Action {
		case environment.ActionScale:
			return s.scaleContainers(ctx, log, r.direction)
		case environment.ActionAwait:
			return s.awaitContainers(ctx, log, r.direction)
		}
	}
	return apperrors.Internal(fmt.Sprintf("no handler for stage %s", stage.Name), nil)
}

func (s *SequencerService) startDatabases(ctx context.Context, log *logger.Logger) error {
	for _, id := range s.inventory.Databases {
		l := log.WithResource(id)
		l.Infof("Starting RDS instance '%s'", id)
		err := s.clients.Databases.StartInstance(ctx, id)
		switch {
		case err == nil:
			metrics.RecordSubmission(string(environment.ClassDatabase), true)
			l.Infof("RDS start command sent for '%s'", id)
		case apperrors.IsIdempotentState(err):
			l.Infof("Note: RDS instance '%s' is already running or not in a startable state", id)
		default:
			metrics.RecordSubmission(string(environment.ClassDatabase), false)
			return withResource(err, environment.ClassDatabase, id)
		}
	}
	return nil
}

func (s *SequencerService) stopDatabases(ctx context.Context, r *run, log *logger.Logger) error {
	for _, id := range s.inventory.Databases {
		l := log.WithResource(id)
		l.Infof("Stopping RDS instance '%s'", id)
		err := s.clients.Databases.StopInstance(ctx, id)
		switch {
		case err == nil:
			metrics.RecordSubmission(string(environment.ClassDatabase), true)
			r.stoppedDatabases = append(r.stoppedDatabases, id)
			l.Infof("RDS stop command sent for '%s'", id)
		case apperrors.IsIdempotentState(err):
			l.Infof("Note: RDS instance '%s' was already stopped or not in a running state", id)
		default:
			metrics.RecordSubmission(string(environment.ClassDatabase), false)
			return withResource(err, environment.ClassDatabase, id)
		}
	}
	return nil
}

// commandClusters sends resume/pause to every managed cluster. The outcome
// is never an error; a non-zero exit is logged only.
func (s *SequencerService) commandClusters(ctx context.Context, log *logger.Logger, action environment.Action) {
	for _, name := range s.inventory.ManagedClusters {
		l := log.WithResource(name)

		var res environment.CommandResult
		if action == environment.ActionResume {
			l.Infof("Resuming Atlas cluster '%s'", name)
			res = s.clients.Clusters.Start(ctx, name)
		} else {
			l.Infof("Pausing Atlas cluster '%s'", name)
			res = s.clients.Clusters.Pause(ctx, name)
		}
		metrics.RecordClusterCommand(string(action), res.Succeeded())

		rl := l.WithFields(map[string]interface{}{
			"command":   strings.Join(res.Args, " "),
			"exit_code": res.ExitCode,
		})
		if !res.Succeeded() && s.opts.WarnOnClusterFailure {
			if res.Err != nil {
				rl = rl.WithError(res.Err)
			}
			rl.Warnf("Atlas cluster '%s' %s command did not succeed: %s", name, action, strings.TrimSpace(res.Output))
		} else {
			rl.Debugf("Atlas command output: %s", strings.TrimSpace(res.Output))
		}
		l.Infof("Atlas cluster '%s' %s command sent (not waiting for state verification)", name, action)
	}
}

func (s *SequencerService) toggleCompute(ctx context.Context, log *logger.Logger, action environment.Action) error {
	ids := s.inventory.ComputeInstances
	l := log.WithResource(strings.Join(ids, ","))

	var err error
	if action == environment.ActionStart {
		l.Infof("Starting EC2 instances: %v", ids)
		err = s.clients.Compute.StartInstances(ctx, ids)
	} else {
		l.Infof("Stopping EC2 instances: %v", ids)
		err = s.clients.Compute.StopInstances(ctx, ids)
	}
	metrics.RecordSubmission(string(environment.ClassCompute), err == nil)
	if err != nil {
		return withResource(err, environment.ClassCompute, strings.Join(ids, ","))
	}
	l.Infof("EC2 %s command sent", action)
	return nil
}

// withResource makes sure a collaborator error names the resource it concerns
func withResource(err error, class environment.ResourceClass, id string) error {
	if apperrors.ResourceOf(err) != "" {
		return err
	}
	return apperrors.ProviderAPIError(string(class), id, err)
}

func failureKind(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeTimeout:
		return "timeout"
	case apperrors.ErrCodeUnexpectedState:
		return "unexpected_state"
	case apperrors.ErrCodeProviderAPI:
		return "api"
	default:
		return "other"
	}
}

func describeStage(st environment.Stage) string {
	switch st.Name {
	case "start-databases":
		return "Starting databases (RDS)"
	case "resume-managed-clusters":
		return "Resuming managed clusters (Atlas)"
	case "await-databases-available":
		return "Verifying database availability"
	case "start-compute":
		return "Starting EC2 bastion host"
	case "await-compute-running":
		return "Waiting for EC2 instances to enter 'running' state"
	case "scale-up-containers":
		return "Scaling up ECS services"
	case "await-containers-stable":
		return "Waiting for ECS services to stabilize"
	case "scale-down-containers":
		return "Scaling down ECS services"
	case "stop-compute":
		return "Stopping EC2 bastion host"
	case "await-compute-stopped":
		return "Waiting for EC2 instances to enter 'stopped' state"
	case "stop-databases":
		return "Stopping databases (RDS)"
	case "await-databases-stopped":
		return "Waiting for databases to stop"
	case "pause-managed-clusters":
		return "Pausing managed clusters (Atlas)"
	default:
		return st.Name
	}
}
