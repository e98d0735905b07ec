package environment

import (
	"fmt"
	"time"
)

// Direction selects which way the environment is toggled
type Direction string

const (
	DirectionStart Direction = "start"
	DirectionStop  Direction = "stop"
)

// ParseDirection validates a command-line direction
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionStart, DirectionStop:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q (want start or stop)", s)
	}
}

// Layer orders resource classes by dependency: data first when starting,
// application first when stopping.
type Layer int

const (
	LayerData Layer = iota
	LayerAccess
	LayerApplication
)

func (l Layer) String() string {
	switch l {
	case LayerData:
		return "data"
	case LayerAccess:
		return "access"
	case LayerApplication:
		return "application"
	default:
		return "unknown"
	}
}

// ResourceClass identifies the kind of resource a stage acts upon
type ResourceClass string

const (
	ClassDatabase         ResourceClass = "database"
	ClassManagedCluster   ResourceClass = "managed_cluster"
	ClassCompute          ResourceClass = "compute"
	ClassContainerService ResourceClass = "container_service"
)

// Layer returns the dependency layer of the class
func (c ResourceClass) Layer() Layer {
	switch c {
	case ClassDatabase, ClassManagedCluster:
		return LayerData
	case ClassCompute:
		return LayerAccess
	default:
		return LayerApplication
	}
}

// Action is what a stage does to its resources
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionResume Action = "resume"
	ActionPause  Action = "pause"
	ActionScale  Action = "scale"
	ActionAwait  Action = "await"
)

// Target states awaited by stabilization waits
const (
	StateAvailable = "available"
	StateRunning   = "running"
	StateStopped   = "stopped"
	StateStable    = "stable"
)

// ContainerService is an application workload and its running task count
type ContainerService struct {
	Cluster      string `json:"cluster" yaml:"cluster" mapstructure:"cluster" validate:"required"`
	Service      string `json:"service" yaml:"service" mapstructure:"service" validate:"required"`
	DesiredCount int32  `json:"desired_count" yaml:"desired_count" mapstructure:"desired_count" validate:"gte=0"`
}

// ID returns the "cluster/service" identifier used in logs and errors
func (s ContainerService) ID() string {
	return s.Cluster + "/" + s.Service
}

// Inventory lists the resources a run acts upon. It is not modified during a run.
type Inventory struct {
	Databases         []string           `json:"databases" yaml:"databases" mapstructure:"databases" validate:"dive,required"`
	ComputeInstances  []string           `json:"compute_instances" yaml:"compute_instances" mapstructure:"compute_instances" validate:"dive,required"`
	ManagedClusters   []string           `json:"managed_clusters" yaml:"managed_clusters" mapstructure:"managed_clusters" validate:"dive,required"`
	ContainerServices []ContainerService `json:"container_services" yaml:"container_services" mapstructure:"container_services" validate:"dive"`
}

// IsEmpty reports whether the inventory names no resources at all
func (inv Inventory) IsEmpty() bool {
	return len(inv.Databases) == 0 && len(inv.ComputeInstances) == 0 &&
		len(inv.ManagedClusters) == 0 && len(inv.ContainerServices) == 0
}

// VerificationMode controls whether and how long stages wait for resources to settle
type VerificationMode string

const (
	VerificationNone     VerificationMode = "none"
	VerificationBasic    VerificationMode = "basic"
	VerificationExtended VerificationMode = "extended"
)

// IsValid checks if the verification mode is known
func (m VerificationMode) IsValid() bool {
	switch m {
	case VerificationNone, VerificationBasic, VerificationExtended:
		return true
	default:
		return false
	}
}

// WaitPolicy is a fixed-delay poll budget
type WaitPolicy struct {
	Delay       time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Ceiling is the longest a wait under this policy can take
func (p WaitPolicy) Ceiling() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Delay
}

// WaitPolicies holds one policy per waited-on resource class
type WaitPolicies struct {
	Database  WaitPolicy `json:"database" yaml:"database" mapstructure:"database"`
	Compute   WaitPolicy `json:"compute" yaml:"compute" mapstructure:"compute"`
	Container WaitPolicy `json:"container" yaml:"container" mapstructure:"container"`
}

// DefaultWaitPolicies returns the poll budgets of a verification mode.
// VerificationNone has no budgets; its stages never wait.
func DefaultWaitPolicies(mode VerificationMode) WaitPolicies {
	switch mode {
	case VerificationBasic:
		p := WaitPolicy{Delay: 15 * time.Second, MaxAttempts: 20}
		return WaitPolicies{Database: p, Compute: p, Container: p}
	case VerificationExtended:
		return WaitPolicies{
			Database:  WaitPolicy{Delay: 30 * time.Second, MaxAttempts: 30},
			Compute:   WaitPolicy{Delay: 15 * time.Second, MaxAttempts: 40},
			Container: WaitPolicy{Delay: 15 * time.Second, MaxAttempts: 40},
		}
	default:
		return WaitPolicies{}
	}
}

// Stage is one step of a run
type Stage struct {
	Name      string        `json:"name" yaml:"name"`
	Direction Direction     `json:"direction" yaml:"direction"`
	Layer     Layer         `json:"-" yaml:"-"`
	Class     ResourceClass `json:"class" yaml:"class"`
	Action    Action        `json:"action" yaml:"action"`
	// Await is the target state polled for; empty means the stage does not wait.
	Await string `json:"await,omitempty" yaml:"await,omitempty"`
}

// StageStatus is the outcome of a stage
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageResult records the outcome of one stage
type StageResult struct {
	Stage    Stage         `json:"stage" yaml:"stage"`
	Status   StageStatus   `json:"status" yaml:"status"`
	Resource string        `json:"resource,omitempty" yaml:"resource,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// RunReport summarizes a whole run
type RunReport struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	Direction    Direction        `json:"direction" yaml:"direction"`
	Verification VerificationMode `json:"verification" yaml:"verification"`
	Stages       []StageResult    `json:"stages" yaml:"stages"`
	StartedAt    time.Time        `json:"started_at" yaml:"started_at"`
	Elapsed      time.Duration    `json:"elapsed_ns" yaml:"elapsed"`
	Success      bool             `json:"success" yaml:"success"`
}

// FailedStage returns the result of the stage that aborted the run, if any
func (r *RunReport) FailedStage() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Status == StageFailed {
			return &r.Stages[i]
		}
	}
	return nil
}
