package providers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

type rdsAPI interface {
	StartDBInstance(ctx context.Context, in *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, in *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
	DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSClient implements environment.DatabaseClient on Amazon RDS
type RDSClient struct {
	api rdsAPI
}

// NewRDSClient creates an RDS-backed database client
func NewRDSClient(cfg aws.Config) *RDSClient {
	return &RDSClient{api: rds.NewFromConfig(cfg)}
}

// StartInstance starts a stopped DB instance
func (c *RDSClient) StartInstance(ctx context.Context, id string) error {
	_, err := c.api.StartDBInstance(ctx, &rds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return classifyRDSError(id, err)
}

// StopInstance stops an available DB instance
func (c *RDSClient) StopInstance(ctx context.Context, id string) error {
	_, err := c.api.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return classifyRDSError(id, err)
}

// InstanceStatus returns the DBInstanceStatus, e.g. "available" or "stopped"
func (c *RDSClient) InstanceStatus(ctx context.Context, id string) (string, error) {
	out, err := c.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return "", apiError("rds", id, err)
	}
	if len(out.DBInstances) == 0 {
		return "", missing("rds", id)
	}
	return aws.ToString(out.DBInstances[0].DBInstanceStatus), nil
}

// classifyRDSError separates "already in that state" rejections from real failures
func classifyRDSError(id string, err error) error {
	if err == nil {
		return nil
	}
	var stateFault *rdstypes.InvalidDBInstanceStateFault
	if errors.As(err, &stateFault) || errorCode(err) == "InvalidDBInstanceState" {
		return apperrors.IdempotentState(id, err)
	}
	return apiError("rds", id, err)
}
