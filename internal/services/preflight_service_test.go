package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
	"github.com/pratik-mahalle/stagingctl/internal/testutil"
)

func TestPreflightService_Run(t *testing.T) {
	denied := apperrors.ProviderAPIError("rds", "db-instances", errors.New("AccessDenied")).
		WithDetails(map[string]string{"aws_code": "AccessDenied"})

	tests := []struct {
		name       string
		setup      func(p *testutil.MockAccountProbe, c *testutil.MockClusterController)
		withAtlas  bool
		wantPassed bool
		wantChecks int
		wantHint   string
	}{
		{
			name:       "all reachable",
			setup:      func(p *testutil.MockAccountProbe, c *testutil.MockClusterController) { p.Counts["ecs"] = 2 },
			withAtlas:  true,
			wantPassed: true,
			wantChecks: 6,
		},
		{
			name: "no identity stops early",
			setup: func(p *testutil.MockAccountProbe, c *testutil.MockClusterController) {
				p.IdentityErr = errors.New("failed to retrieve credentials")
			},
			withAtlas:  true,
			wantPassed: false,
			wantChecks: 1,
			wantHint:   "no AWS credentials found: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or aws.profile",
		},
		{
			name: "denied service fails the check",
			setup: func(p *testutil.MockAccountProbe, c *testutil.MockClusterController) {
				p.CountErr["rds"] = denied
			},
			wantPassed: false,
			wantChecks: 5,
			wantHint:   "access denied: verify the credentials have the required permissions",
		},
		{
			name: "missing atlas is optional",
			setup: func(p *testutil.MockAccountProbe, c *testutil.MockClusterController) {
				c.ExitCode = 127
			},
			withAtlas:  true,
			wantPassed: true,
			wantChecks: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := testutil.NewMockAccountProbe()
			clusters := testutil.NewMockClusterController(&testutil.CallLog{})
			tt.setup(probe, clusters)

			svc := NewPreflightService(probe, nil, logger.Nop())
			if tt.withAtlas {
				svc = NewPreflightService(probe, clusters, logger.Nop())
			}
			report := svc.Run(context.Background())

			if report.Passed() != tt.wantPassed {
				t.Errorf("Passed() = %v, want %v (%+v)", report.Passed(), tt.wantPassed, report.Checks)
			}
			if len(report.Checks) != tt.wantChecks {
				t.Errorf("checks = %d, want %d", len(report.Checks), tt.wantChecks)
			}
			if tt.wantHint != "" {
				found := false
				for _, c := range report.Checks {
					if c.Hint == tt.wantHint {
						found = true
					}
				}
				if !found {
					t.Errorf("no check carries hint %q: %+v", tt.wantHint, report.Checks)
				}
			}
		})
	}
}
