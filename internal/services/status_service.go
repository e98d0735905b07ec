package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
)

// ResourceStatus is the live state of one inventory resource
type ResourceStatus struct {
	Class  environment.ResourceClass `json:"class" yaml:"class"`
	ID     string                    `json:"id" yaml:"id"`
	State  string                    `json:"state,omitempty" yaml:"state,omitempty"`
	Detail string                    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error  string                    `json:"error,omitempty" yaml:"error,omitempty"`
}

// StatusReport lists the state of every inventory resource
type StatusReport struct {
	CheckedAt time.Time        `json:"checked_at" yaml:"checked_at"`
	Resources []ResourceStatus `json:"resources" yaml:"resources"`
}

// Errors counts the resources whose state could not be read
func (r *StatusReport) Errors() int {
	n := 0
	for _, res := range r.Resources {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// StatusService reads the live state of the inventory without changing it
type StatusService struct {
	clients   environment.Clients
	inventory environment.Inventory
	logger    *logger.Logger
}

// NewStatusService creates a new status service
func NewStatusService(clients environment.Clients, inv environment.Inventory, log *logger.Logger) *StatusService {
	return &StatusService{
		clients:   clients,
		inventory: inv,
		logger:    log,
	}
}

// Collect queries every resource in layer order. A failed query is
// recorded on its resource and does not stop the others.
func (s *StatusService) Collect(ctx context.Context) *StatusReport {
	report := &StatusReport{CheckedAt: time.Now()}
	add := func(rs ResourceStatus, err error) {
		if err != nil {
			rs.Error = err.Error()
			s.logger.WithResource(rs.ID).WithError(err).Warn("Failed to read resource state")
		}
		report.Resources = append(report.Resources, rs)
	}

	for _, id := range s.inventory.Databases {
		state, err := s.clients.Databases.InstanceStatus(ctx, id)
		add(ResourceStatus{Class: environment.ClassDatabase, ID: id, State: state}, err)
	}

	for _, name := range s.inventory.ManagedClusters {
		state, err := s.clients.Clusters.Describe(ctx, name)
		rs := ResourceStatus{Class: environment.ClassManagedCluster, ID: name, State: state.StateName}
		if err == nil {
			rs.Detail = fmt.Sprintf("paused=%t", state.Paused)
		}
		add(rs, err)
	}

	if ids := s.inventory.ComputeInstances; len(ids) > 0 {
		states, err := s.clients.Compute.InstanceStates(ctx, ids)
		for _, id := range ids {
			add(ResourceStatus{Class: environment.ClassCompute, ID: id, State: states[id]}, err)
		}
	}

	for _, svc := range s.inventory.ContainerServices {
		st, err := s.clients.Containers.DescribeService(ctx, svc.Cluster, svc.Service)
		rs := ResourceStatus{Class: environment.ClassContainerService, ID: svc.ID(), State: st.Status}
		if err == nil {
			rs.Detail = fmt.Sprintf("desired=%d running=%d pending=%d deployments=%d",
				st.DesiredCount, st.RunningCount, st.PendingCount, st.Deployments)
		}
		add(rs, err)
	}

	return report
}
