package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pratik-mahalle/stagingctl/internal/config"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/testutil"
)

const testConfig = `
inventory:
  databases: [main-db]
  compute_instances: [i-0bastion]
  container_services:
    - cluster: staging
      service: backend
      desired_count: 1
sequencer:
  verification: none
`

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stagingctl.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestExecute_UsageErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"no command", nil, apperrors.ErrCodeInvalidArgument},
		{"unknown command", []string{"restart"}, ""},
		{"extra argument", []string{"start", "now"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			err := execute(newRootCmd(), tt.args, &stderr)
			if err == nil {
				t.Fatal("execute() error = nil, want usage error")
			}
			if got := apperrors.CodeOf(err); got != tt.wantCode {
				t.Errorf("CodeOf() = %q, want %q", got, tt.wantCode)
			}
			if !strings.Contains(stderr.String(), "Usage:") {
				t.Errorf("stderr = %q, want usage text", stderr.String())
			}
		})
	}
}

func TestExecute_DryRun(t *testing.T) {
	out := captureStdout(t)
	var stderr bytes.Buffer

	err := execute(newRootCmd(), []string{"stop", "--dry-run", "--config", writeTestConfig(t), "--verification", "basic"}, &stderr)
	if err != nil {
		t.Fatalf("execute() error = %v (stderr %s)", err, stderr.String())
	}

	got := out.String()
	for _, want := range []string{"scale-down-containers", "await-compute-stopped", "stop-databases", "stopped (max 4m45s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("plan output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "stop-compute") > strings.Index(got, "stop-databases") {
		t.Errorf("compute listed after databases:\n%s", got)
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("inventory: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	err := execute(newRootCmd(), []string{"start", "--config", path}, &stderr)
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidConfig {
		t.Errorf("execute() error = %v, want INVALID_CONFIG", err)
	}
	if strings.Contains(stderr.String(), "Usage:") {
		t.Error("configuration errors should not print usage")
	}
}

func testApp(t *testing.T, f *testutil.Fixture) *app {
	t.Helper()
	cfg, err := config.Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return &app{
		cfg:    cfg,
		logger: logger.New(logger.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}}),
		newClients: func(ctx context.Context) (environment.Clients, error) {
			return f.Clients(), nil
		},
	}
}

func TestRunDirection(t *testing.T) {
	f := testutil.NewFixture()
	a := testApp(t, f)

	if err := runDirection(context.Background(), a, environment.DirectionStart); err != nil {
		t.Fatalf("runDirection() error = %v", err)
	}
	if got := f.Log.WithPrefix("ecs.update staging/backend 1"); len(got) != 1 {
		t.Errorf("ecs updates = %v", f.Log.Calls())
	}

	f.Compute.StopErr = apperrors.ProviderAPIError("ec2", "i-0bastion", errors.New("UnauthorizedOperation"))
	err := runDirection(context.Background(), a, environment.DirectionStop)
	if apperrors.ResourceOf(err) != "i-0bastion" {
		t.Errorf("runDirection(stop) error = %v, want failure on i-0bastion", err)
	}
	if got := f.Log.WithPrefix("rds.stop"); len(got) != 0 {
		t.Errorf("databases stopped after compute failure: %v", got)
	}
}

func TestStatusOutput(t *testing.T) {
	out := captureStdout(t)
	f := testutil.NewFixture()
	f.Databases.Statuses["main-db"] = []string{"stopped"}
	current = testApp(t, f)
	t.Cleanup(func() { current = nil })

	cmd := newStatusCmd()
	cmd.SetContext(context.Background())
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"main-db", "[-] stopped", "i-0bastion", "staging/backend"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestPrintPlan_WriteError(t *testing.T) {
	prev := stdout
	stdout = failingWriter{}
	t.Cleanup(func() { stdout = prev })

	plan := []environment.Stage{{Name: "start-databases", Class: environment.ClassDatabase, Action: environment.ActionStart}}
	if err := printPlan(plan, environment.WaitPolicies{}); err == nil {
		t.Error("printPlan() error = nil, want the write error")
	}
}
