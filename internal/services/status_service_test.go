package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/testutil"
)

func TestStatusService_Collect(t *testing.T) {
	f := testutil.NewFixture()
	f.Databases.Statuses["main-db"] = []string{"available"}
	f.Databases.StatusErr["analytics-db"] = apperrors.ProviderAPIError("rds", "analytics-db", errors.New("DBInstanceNotFound"))
	f.Compute.States = []string{"stopped"}
	f.Clusters.State = environment.ClusterState{StateName: "IDLE", Paused: true}
	f.Containers.Statuses["staging/backend"] = []environment.ServiceStatus{
		{Status: "ACTIVE", DesiredCount: 1, RunningCount: 1, Deployments: 1},
	}

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	report := NewStatusService(f.Clients(), stagingInventory(), log).Collect(context.Background())

	if got := len(report.Resources); got != 6 {
		t.Fatalf("resources = %d, want 6", got)
	}
	if got := report.Errors(); got != 1 {
		t.Errorf("Errors() = %d, want 1", got)
	}

	byID := make(map[string]ResourceStatus)
	for _, rs := range report.Resources {
		byID[rs.ID] = rs
	}

	tests := []struct {
		id     string
		state  string
		detail string
	}{
		{"main-db", "available", ""},
		{"api-staging", "IDLE", "paused=true"},
		{"i-0bastion", "stopped", ""},
		{"staging/backend", "ACTIVE", "desired=1 running=1 pending=0 deployments=1"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rs, ok := byID[tt.id]
			if !ok {
				t.Fatalf("no status for %s", tt.id)
			}
			if rs.State != tt.state || rs.Detail != tt.detail || rs.Error != "" {
				t.Errorf("status = %+v, want state %q detail %q", rs, tt.state, tt.detail)
			}
		})
	}

	if rs := byID["analytics-db"]; rs.Error == "" {
		t.Errorf("analytics-db status = %+v, want an inline error", rs)
	}
}

func TestStatusService_ComputeErrorMarksEveryInstance(t *testing.T) {
	f := testutil.NewFixture()
	f.Compute.StateErr = apperrors.ProviderAPIError("ec2", "i-1,i-2", errors.New("throttled"))

	inv := environment.Inventory{ComputeInstances: []string{"i-1", "i-2"}}
	report := NewStatusService(f.Clients(), inv, logger.Nop()).Collect(context.Background())

	if report.Errors() != 2 {
		t.Errorf("Errors() = %d, want 2", report.Errors())
	}
}
