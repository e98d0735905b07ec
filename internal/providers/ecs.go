package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

type ecsAPI interface {
	UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// ECSClient implements environment.ContainerClient on Amazon ECS
type ECSClient struct {
	api ecsAPI
}

// NewECSClient creates an ECS-backed container client
func NewECSClient(cfg aws.Config) *ECSClient {
	return &ECSClient{api: ecs.NewFromConfig(cfg)}
}

// UpdateDesiredCount sets the service's desired task count
func (c *ECSClient) UpdateDesiredCount(ctx context.Context, svc environment.ContainerService, count int32) error {
	_, err := c.api.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(svc.Cluster),
		Service:      aws.String(svc.Service),
		DesiredCount: aws.Int32(count),
	})
	if err != nil {
		return apiError("ecs", svc.ID(), err)
	}
	return nil
}

// DescribeService returns the task counts and deployment count of a service
func (c *ECSClient) DescribeService(ctx context.Context, cluster, service string) (environment.ServiceStatus, error) {
	id := cluster + "/" + service
	out, err := c.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return environment.ServiceStatus{}, apiError("ecs", id, err)
	}
	if len(out.Failures) > 0 {
		return environment.ServiceStatus{}, apperrors.ProviderAPIError("ecs", id,
			fmt.Errorf("describe failed: %s", aws.ToString(out.Failures[0].Reason)))
	}
	if len(out.Services) == 0 {
		return environment.ServiceStatus{}, missing("ecs", id)
	}

	s := out.Services[0]
	return environment.ServiceStatus{
		Status:       aws.ToString(s.Status),
		DesiredCount: s.DesiredCount,
		RunningCount: s.RunningCount,
		PendingCount: s.PendingCount,
		Deployments:  len(s.Deployments),
	}, nil
}
