package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/stagingctl/internal/config"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
)

// Runner executes one run of the environment sequencer
type Runner interface {
	Run(ctx context.Context, dir environment.Direction) (*environment.RunReport, error)
}

// EntryStatus describes one scheduled direction
type EntryStatus struct {
	Direction environment.Direction `json:"direction"`
	Schedule  string                `json:"schedule"`
	Next      time.Time             `json:"next"`
	Prev      time.Time             `json:"prev,omitempty"`
}

// SchedulerStatus is a snapshot of the scheduler
type SchedulerStatus struct {
	Running    bool                                             `json:"running"`
	InProgress environment.Direction                            `json:"in_progress,omitempty"`
	Timezone   string                                           `json:"timezone"`
	Entries    []EntryStatus                                    `json:"entries"`
	LastRuns   map[environment.Direction]*environment.RunReport `json:"last_runs"`
	LastErrors map[environment.Direction]string                 `json:"last_errors,omitempty"`
}

// EnvScheduler starts and stops the environment on cron schedules. At most
// one run is in progress at a time; a tick that finds another run still
// going is skipped.
type EnvScheduler struct {
	runner    Runner
	schedules map[environment.Direction]string
	location  *time.Location
	logger    *logger.Logger

	scheduler    *cron.Cron
	entries      map[environment.Direction]cron.EntryID
	runningMutex sync.RWMutex
	isRunning    bool
	ctx          context.Context

	// runMutex is held for the duration of a run
	runMutex   sync.Mutex
	stateMutex sync.RWMutex
	inProgress environment.Direction
	lastRuns   map[environment.Direction]*environment.RunReport
	lastErrors map[environment.Direction]string
}

// NewEnvScheduler creates a scheduler from the schedule configuration.
// An empty expression leaves that direction unscheduled.
func NewEnvScheduler(runner Runner, cfg config.ScheduleConfig, log *logger.Logger) (*EnvScheduler, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone: %w", err)
	}

	schedules := make(map[environment.Direction]string)
	for dir, spec := range map[environment.Direction]string{
		environment.DirectionStart: cfg.Start,
		environment.DirectionStop:  cfg.Stop,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid %s schedule: %w", dir, err)
		}
		schedules[dir] = spec
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("no schedule configured: set schedule.start and/or schedule.stop")
	}

	return &EnvScheduler{
		runner:     runner,
		schedules:  schedules,
		location:   loc,
		logger:     log,
		entries:    make(map[environment.Direction]cron.EntryID),
		lastRuns:   make(map[environment.Direction]*environment.RunReport),
		lastErrors: make(map[environment.Direction]string),
	}, nil
}

// Start registers the schedules and starts the cron loop. Runs triggered by
// the schedule use ctx.
func (s *EnvScheduler) Start(ctx context.Context) error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	cronLog := cron.VerbosePrintfLogger(s.logger)
	s.scheduler = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)
	s.ctx = ctx

	for _, dir := range []environment.Direction{environment.DirectionStart, environment.DirectionStop} {
		spec, ok := s.schedules[dir]
		if !ok {
			continue
		}
		id, err := s.scheduler.AddFunc(spec, func() {
			if _, err := s.Trigger(s.ctx, dir); err != nil {
				s.logger.With("direction", string(dir)).ErrorWithErr(err, "Scheduled run failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", dir, err)
		}
		s.entries[dir] = id

		s.logger.WithFields(map[string]interface{}{
			"direction": string(dir),
			"schedule":  spec,
			"timezone":  s.location.String(),
		}).Info("Run scheduled")
	}

	s.scheduler.Start()
	s.isRunning = true
	s.logger.Info("Environment scheduler started")
	return nil
}

// Stop halts the cron loop. The returned context is done once any run in
// progress has finished.
func (s *EnvScheduler) Stop() context.Context {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if !s.isRunning {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	done := s.scheduler.Stop()
	s.isRunning = false
	s.entries = make(map[environment.Direction]cron.EntryID)
	s.logger.Info("Environment scheduler stopped")
	return done
}

// ErrRunInProgress is returned by Trigger when another run holds the environment
var ErrRunInProgress = errors.New("another run is in progress")

// Trigger runs dir now unless another run is in progress
func (s *EnvScheduler) Trigger(ctx context.Context, dir environment.Direction) (*environment.RunReport, error) {
	if !s.runMutex.TryLock() {
		s.stateMutex.RLock()
		busy := s.inProgress
		s.stateMutex.RUnlock()
		s.logger.WithFields(map[string]interface{}{
			"direction":   string(dir),
			"in_progress": string(busy),
		}).Warn("Skipping run, another run is in progress")
		return nil, ErrRunInProgress
	}
	defer s.runMutex.Unlock()

	s.setInProgress(dir)
	defer s.setInProgress("")

	report, err := s.runner.Run(ctx, dir)

	s.stateMutex.Lock()
	if report != nil {
		s.lastRuns[dir] = report
	}
	if err != nil {
		s.lastErrors[dir] = err.Error()
	} else {
		delete(s.lastErrors, dir)
	}
	s.stateMutex.Unlock()

	return report, err
}

func (s *EnvScheduler) setInProgress(dir environment.Direction) {
	s.stateMutex.Lock()
	s.inProgress = dir
	s.stateMutex.Unlock()
}

// Status returns a snapshot of the schedules and the last run of each direction
func (s *EnvScheduler) Status() SchedulerStatus {
	s.runningMutex.RLock()
	st := SchedulerStatus{
		Running:  s.isRunning,
		Timezone: s.location.String(),
	}
	if s.isRunning {
		for _, dir := range []environment.Direction{environment.DirectionStart, environment.DirectionStop} {
			id, ok := s.entries[dir]
			if !ok {
				continue
			}
			e := s.scheduler.Entry(id)
			st.Entries = append(st.Entries, EntryStatus{
				Direction: dir,
				Schedule:  s.schedules[dir],
				Next:      e.Next,
				Prev:      e.Prev,
			})
		}
	}
	s.runningMutex.RUnlock()

	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	st.InProgress = s.inProgress
	st.LastRuns = make(map[environment.Direction]*environment.RunReport, len(s.lastRuns))
	for dir, r := range s.lastRuns {
		st.LastRuns[dir] = r
	}
	if len(s.lastErrors) > 0 {
		st.LastErrors = make(map[environment.Direction]string, len(s.lastErrors))
		for dir, e := range s.lastErrors {
			st.LastErrors[dir] = e
		}
	}
	return st
}
