package environment

import (
	"context"
	"time"
)

// DatabaseClient starts and stops relational database instances.
// Start and stop return an IDEMPOTENT_STATE AppError when the instance is
// already in, or moving towards, the requested state.
type DatabaseClient interface {
	StartInstance(ctx context.Context, id string) error
	StopInstance(ctx context.Context, id string) error
	InstanceStatus(ctx context.Context, id string) (string, error)
}

// ComputeClient starts and stops virtual machines in batches
type ComputeClient interface {
	StartInstances(ctx context.Context, ids []string) error
	StopInstances(ctx context.Context, ids []string) error
	InstanceStates(ctx context.Context, ids []string) (map[string]string, error)
}

// ServiceStatus is the observed state of a container service
type ServiceStatus struct {
	Status       string `json:"status" yaml:"status"`
	DesiredCount int32  `json:"desired_count" yaml:"desired_count"`
	RunningCount int32  `json:"running_count" yaml:"running_count"`
	PendingCount int32  `json:"pending_count" yaml:"pending_count"`
	Deployments  int    `json:"deployments" yaml:"deployments"`
}

// Stable reports whether the service has settled at the given task count
func (s ServiceStatus) Stable(desired int32) bool {
	return s.Deployments == 1 && s.DesiredCount == desired && s.RunningCount == desired
}

// ContainerClient adjusts and observes container services
type ContainerClient interface {
	UpdateDesiredCount(ctx context.Context, svc ContainerService, count int32) error
	DescribeService(ctx context.Context, cluster, service string) (ServiceStatus, error)
}

// CommandResult is the captured outcome of an external process
type CommandResult struct {
	Args     []string      `json:"args"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
}

// Succeeded reports whether the process ran and exited zero
func (r CommandResult) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

// ClusterState is the observed state of a managed database cluster
type ClusterState struct {
	StateName string `json:"stateName" yaml:"state_name"`
	Paused    bool   `json:"paused" yaml:"paused"`
}

// ClusterController drives the managed-database CLI. Start and Pause never
// fail the caller; the captured result is informational.
type ClusterController interface {
	Start(ctx context.Context, name string) CommandResult
	Pause(ctx context.Context, name string) CommandResult
	Describe(ctx context.Context, name string) (ClusterState, error)
	Version(ctx context.Context) CommandResult
}

// Clients bundles the collaborators a run needs
type Clients struct {
	Databases  DatabaseClient
	Compute    ComputeClient
	Containers ContainerClient
	Clusters   ClusterController
}

// Identity is the account the AWS credentials resolve to
type Identity struct {
	Account string `json:"account" yaml:"account"`
	ARN     string `json:"arn" yaml:"arn"`
	Region  string `json:"region" yaml:"region"`
}

// AccountProbe answers the read-only questions of a connection check
type AccountProbe interface {
	CallerIdentity(ctx context.Context) (Identity, error)
	CountBuckets(ctx context.Context) (int, error)
	CountClusters(ctx context.Context) (int, error)
	CountInstances(ctx context.Context) (int, error)
	CountDatabases(ctx context.Context) (int, error)
}
