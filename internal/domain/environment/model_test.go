package environment

import (
	"testing"
	"time"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "start", want: DirectionStart},
		{in: "stop", want: DirectionStop},
		{in: "START", wantErr: true},
		{in: "", wantErr: true},
		{in: "restart", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDirection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultWaitPolicies(t *testing.T) {
	extended := DefaultWaitPolicies(VerificationExtended)
	if extended.Database != (WaitPolicy{Delay: 30 * time.Second, MaxAttempts: 30}) {
		t.Errorf("extended database policy = %+v", extended.Database)
	}
	if extended.Container.MaxAttempts != 40 || extended.Compute.Delay != 15*time.Second {
		t.Errorf("extended compute/container policy = %+v / %+v", extended.Compute, extended.Container)
	}

	basic := DefaultWaitPolicies(VerificationBasic)
	if got := basic.Database.Ceiling(); got > 5*time.Minute {
		t.Errorf("basic ceiling = %v, want at most 5m", got)
	}

	if none := DefaultWaitPolicies(VerificationNone); none != (WaitPolicies{}) {
		t.Errorf("none policies = %+v, want zero", none)
	}
}

func TestServiceStatus_Stable(t *testing.T) {
	tests := []struct {
		name    string
		status  ServiceStatus
		desired int32
		want    bool
	}{
		{"settled", ServiceStatus{DesiredCount: 1, RunningCount: 1, Deployments: 1}, 1, true},
		{"scaled to zero", ServiceStatus{DesiredCount: 0, RunningCount: 0, Deployments: 1}, 0, true},
		{"still draining", ServiceStatus{DesiredCount: 0, RunningCount: 1, Deployments: 1}, 0, false},
		{"rolling deployment", ServiceStatus{DesiredCount: 1, RunningCount: 1, Deployments: 2}, 1, false},
		{"desired not yet applied", ServiceStatus{DesiredCount: 0, RunningCount: 0, Deployments: 1}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Stable(tt.desired); got != tt.want {
				t.Errorf("Stable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResourceClass_Layer(t *testing.T) {
	if ClassDatabase.Layer() != LayerData || ClassManagedCluster.Layer() != LayerData {
		t.Error("databases and managed clusters belong to the data layer")
	}
	if ClassCompute.Layer() != LayerAccess {
		t.Error("compute belongs to the access layer")
	}
	if ClassContainerService.Layer() != LayerApplication {
		t.Error("container services belong to the application layer")
	}
}
