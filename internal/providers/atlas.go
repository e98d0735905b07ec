package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

// AtlasCLI drives MongoDB Atlas clusters through the atlas command-line tool.
// Arguments are passed as a list; nothing goes through a shell.
type AtlasCLI struct {
	Binary    string
	ProjectID string
	Timeout   time.Duration
}

// NewAtlasCLI creates a runner for the given binary
func NewAtlasCLI(binary, projectID string, timeout time.Duration) *AtlasCLI {
	return &AtlasCLI{
		Binary:    nonEmpty(binary, "atlas"),
		ProjectID: projectID,
		Timeout:   timeout,
	}
}

// Start resumes a paused cluster
func (a *AtlasCLI) Start(ctx context.Context, name string) environment.CommandResult {
	return a.run(ctx, a.clusterArgs("start", name)...)
}

// Pause pauses a running cluster
func (a *AtlasCLI) Pause(ctx context.Context, name string) environment.CommandResult {
	return a.run(ctx, a.clusterArgs("pause", name)...)
}

// Describe reads the cluster's state name and paused flag
func (a *AtlasCLI) Describe(ctx context.Context, name string) (environment.ClusterState, error) {
	res := a.run(ctx, append(a.clusterArgs("describe", name), "--output", "json")...)
	if !res.Succeeded() {
		cause := res.Err
		if cause == nil {
			cause = fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
		}
		return environment.ClusterState{}, apperrors.ProviderAPIError("atlas", name, cause)
	}

	var state environment.ClusterState
	if err := json.Unmarshal([]byte(res.Output), &state); err != nil {
		return environment.ClusterState{}, apperrors.ProviderAPIError("atlas", name, fmt.Errorf("decode describe output: %w", err))
	}
	return state, nil
}

// Version runs "atlas --version"
func (a *AtlasCLI) Version(ctx context.Context) environment.CommandResult {
	return a.run(ctx, "--version")
}

func (a *AtlasCLI) clusterArgs(action, name string) []string {
	args := []string{"clusters", action, name}
	if a.ProjectID != "" {
		args = append(args, "--projectId", a.ProjectID)
	}
	return args
}

func (a *AtlasCLI) run(ctx context.Context, args ...string) environment.CommandResult {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, a.Binary, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	res := environment.CommandResult{
		Args:     append([]string{a.Binary}, args...),
		Output:   out.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = err
	}
	return res
}
