package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
	"github.com/pratik-mahalle/stagingctl/internal/pkg/logger"
)

// CheckResult is the outcome of one preflight check
type CheckResult struct {
	Name     string `json:"name" yaml:"name"`
	OK       bool   `json:"ok" yaml:"ok"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Hint     string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// PreflightReport collects the results of a connection check
type PreflightReport struct {
	Identity environment.Identity `json:"identity" yaml:"identity"`
	Checks   []CheckResult        `json:"checks" yaml:"checks"`
}

// Passed reports whether every required check succeeded
func (r *PreflightReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Optional {
			return false
		}
	}
	return true
}

// PreflightService verifies that the credentials can reach every service a run uses
type PreflightService struct {
	probe    environment.AccountProbe
	clusters environment.ClusterController
	logger   *logger.Logger
}

// NewPreflightService creates a new preflight service. clusters may be nil
// when no managed cluster is configured.
func NewPreflightService(probe environment.AccountProbe, clusters environment.ClusterController, log *logger.Logger) *PreflightService {
	return &PreflightService{
		probe:    probe,
		clusters: clusters,
		logger:   log,
	}
}

// Run executes the checks. Without a caller identity nothing else can
// succeed, so the remaining AWS checks are skipped.
func (s *PreflightService) Run(ctx context.Context) *PreflightReport {
	report := &PreflightReport{}

	s.logger.Info("Testing AWS identity (STS)")
	identity, err := s.probe.CallerIdentity(ctx)
	if err != nil {
		report.Checks = append(report.Checks, s.failed("sts:identity", err))
		return report
	}
	report.Identity = identity
	report.Checks = append(report.Checks, CheckResult{
		Name:   "sts:identity",
		OK:     true,
		Detail: fmt.Sprintf("account %s as %s in %s", identity.Account, identity.ARN, identity.Region),
	})

	counts := []struct {
		name  string
		noun  string
		count func(context.Context) (int, error)
	}{
		{"s3:buckets", "buckets", s.probe.CountBuckets},
		{"ecs:clusters", "clusters", s.probe.CountClusters},
		{"ec2:instances", "instances", s.probe.CountInstances},
		{"rds:instances", "databases", s.probe.CountDatabases},
	}
	for _, c := range counts {
		s.logger.Infof("Testing %s access", c.name)
		n, err := c.count(ctx)
		if err != nil {
			report.Checks = append(report.Checks, s.failed(c.name, err))
			continue
		}
		report.Checks = append(report.Checks, CheckResult{
			Name:   c.name,
			OK:     true,
			Detail: fmt.Sprintf("found %d %s", n, c.noun),
		})
	}

	if s.clusters != nil {
		res := s.clusters.Version(ctx)
		check := CheckResult{Name: "atlas:cli", Optional: true, OK: res.Succeeded()}
		if check.OK {
			check.Detail = firstLine(res.Output)
		} else {
			check.Error = firstLine(res.Output)
			if res.Err != nil {
				check.Error = res.Err.Error()
			}
			check.Hint = "install the Atlas CLI and run 'atlas auth login' to manage clusters"
		}
		report.Checks = append(report.Checks, check)
	}

	return report
}

func (s *PreflightService) failed(name string, err error) CheckResult {
	s.logger.With("check", name).ErrorWithErr(err, "Preflight check failed")
	return CheckResult{
		Name:  name,
		Error: err.Error(),
		Hint:  hintFor(err),
	}
}

func hintFor(err error) string {
	var code string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if d, ok := appErr.Details.(map[string]string); ok {
			code = d["aws_code"]
		}
	}

	switch {
	case code == "UnauthorizedOperation":
		return "insufficient permissions: check the IAM policy of these credentials"
	case code == "AccessDenied" || code == "AccessDeniedException":
		return "access denied: verify the credentials have the required permissions"
	case code == "" && strings.Contains(err.Error(), "credentials"):
		return "no AWS credentials found: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or aws.profile"
	default:
		return ""
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
