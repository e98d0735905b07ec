package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pratik-mahalle/stagingctl/internal/config"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
)

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	err     error
}

func (r *fakeRunner) Run(ctx context.Context, dir environment.Direction) (*environment.RunReport, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return &environment.RunReport{RunID: "run-1", Direction: dir, Success: r.err == nil}, r.err
}

func TestNewEnvScheduler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ScheduleConfig
		wantErr bool
	}{
		{"weekday hours", config.ScheduleConfig{Start: "0 8 * * 1-5", Stop: "0 20 * * 1-5", Timezone: "Asia/Singapore"}, false},
		{"stop only", config.ScheduleConfig{Stop: "0 20 * * *"}, false},
		{"nothing scheduled", config.ScheduleConfig{}, true},
		{"bad expression", config.ScheduleConfig{Start: "every morning"}, true},
		{"bad timezone", config.ScheduleConfig{Start: "0 8 * * *", Timezone: "Mars/Olympus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnvScheduler(&fakeRunner{}, tt.cfg, logger.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEnvScheduler() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvScheduler_TriggerSkipsOverlap(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewEnvScheduler(runner, config.ScheduleConfig{Start: "0 8 * * *"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewEnvScheduler() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background(), environment.DirectionStart)
		done <- err
	}()
	<-runner.started

	if st := s.Status(); st.InProgress != environment.DirectionStart {
		t.Errorf("InProgress = %q, want start", st.InProgress)
	}
	if _, err := s.Trigger(context.Background(), environment.DirectionStop); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping Trigger() error = %v, want ErrRunInProgress", err)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner calls = %d, want 1", got)
	}

	st := s.Status()
	if st.InProgress != "" {
		t.Errorf("InProgress = %q after run", st.InProgress)
	}
	if r := st.LastRuns[environment.DirectionStart]; r == nil || r.RunID != "run-1" {
		t.Errorf("LastRuns[start] = %+v", r)
	}
}

func TestEnvScheduler_RecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("stage start-databases: denied")}
	s, _ := NewEnvScheduler(runner, config.ScheduleConfig{Stop: "0 20 * * *"}, logger.Nop())

	if _, err := s.Trigger(context.Background(), environment.DirectionStop); err == nil {
		t.Fatal("Trigger() error = nil")
	}
	if got := s.Status().LastErrors[environment.DirectionStop]; got != "stage start-databases: denied" {
		t.Errorf("LastErrors[stop] = %q", got)
	}
}

func TestEnvScheduler_StartStop(t *testing.T) {
	s, err := NewEnvScheduler(&fakeRunner{}, config.ScheduleConfig{
		Start: "0 8 * * 1-5", Stop: "0 20 * * 1-5", Timezone: "UTC",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("NewEnvScheduler() error = %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil")
	}

	st := s.Status()
	if !st.Running || len(st.Entries) != 2 {
		t.Fatalf("Status() = %+v, want running with 2 entries", st)
	}
	for _, e := range st.Entries {
		if e.Next.IsZero() || !e.Next.After(time.Now()) {
			t.Errorf("entry %s next = %v, want a future time", e.Direction, e.Next)
		}
	}

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("Stop() did not finish")
	}
	if s.Status().Running {
		t.Error("Status().Running = true after Stop()")
	}
}
