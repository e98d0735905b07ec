package providers

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

type ec2API interface {
	StartInstances(ctx context.Context, in *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, in *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2Client implements environment.ComputeClient on Amazon EC2
type EC2Client struct {
	api ec2API
}

// NewEC2Client creates an EC2-backed compute client
func NewEC2Client(cfg aws.Config) *EC2Client {
	return &EC2Client{api: ec2.NewFromConfig(cfg)}
}

// StartInstances starts all instances in one request
func (c *EC2Client) StartInstances(ctx context.Context, ids []string) error {
	if _, err := c.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: ids}); err != nil {
		return apiError("ec2", strings.Join(ids, ","), err)
	}
	return nil
}

// StopInstances stops all instances in one request
func (c *EC2Client) StopInstances(ctx context.Context, ids []string) error {
	if _, err := c.api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: ids}); err != nil {
		return apiError("ec2", strings.Join(ids, ","), err)
	}
	return nil
}

// InstanceStates maps each instance ID to its state name ("running", "stopped", ...)
func (c *EC2Client) InstanceStates(ctx context.Context, ids []string) (map[string]string, error) {
	states := make(map[string]string, len(ids))
	p := ec2.NewDescribeInstancesPaginator(c.api, &ec2.DescribeInstancesInput{InstanceIds: ids})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apiError("ec2", strings.Join(ids, ","), err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				state := "unknown"
				if inst.State != nil && inst.State.Name != "" {
					state = string(inst.State.Name)
				}
				states[aws.ToString(inst.InstanceId)] = state
			}
		}
	}
	for _, id := range ids {
		if _, ok := states[id]; !ok {
			return nil, missing("ec2", id)
		}
	}
	return states, nil
}
