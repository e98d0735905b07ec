package providers

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
)

// AccountProbe implements environment.AccountProbe with read-only AWS calls
type AccountProbe struct {
	region string
	sts    *sts.Client
	s3     *s3.Client
	ecs    *ecs.Client
	ec2    *ec2.Client
	rds    *rds.Client
}

// NewAccountProbe creates a probe for the account cfg resolves to
func NewAccountProbe(cfg aws.Config) *AccountProbe {
	return &AccountProbe{
		region: cfg.Region,
		sts:    sts.NewFromConfig(cfg),
		s3:     s3.NewFromConfig(cfg),
		ecs:    ecs.NewFromConfig(cfg),
		ec2:    ec2.NewFromConfig(cfg),
		rds:    rds.NewFromConfig(cfg),
	}
}

// CallerIdentity returns the account and principal of the credentials
func (p *AccountProbe) CallerIdentity(ctx context.Context) (environment.Identity, error) {
	out, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return environment.Identity{}, apiError("sts", "caller-identity", err)
	}
	return environment.Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		Region:  p.region,
	}, nil
}

// CountBuckets returns the number of S3 buckets visible to the credentials
func (p *AccountProbe) CountBuckets(ctx context.Context) (int, error) {
	out, err := p.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return 0, apiError("s3", "buckets", err)
	}
	return len(out.Buckets), nil
}

// CountClusters returns the number of ECS clusters in the region
func (p *AccountProbe) CountClusters(ctx context.Context) (int, error) {
	n := 0
	pg := ecs.NewListClustersPaginator(p.ecs, &ecs.ListClustersInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return 0, apiError("ecs", "clusters", err)
		}
		n += len(page.ClusterArns)
	}
	return n, nil
}

// CountInstances returns the number of EC2 instances in the region
func (p *AccountProbe) CountInstances(ctx context.Context) (int, error) {
	n := 0
	pg := ec2.NewDescribeInstancesPaginator(p.ec2, &ec2.DescribeInstancesInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return 0, apiError("ec2", "instances", err)
		}
		for _, res := range page.Reservations {
			n += len(res.Instances)
		}
	}
	return n, nil
}

// CountDatabases returns the number of RDS instances in the region
func (p *AccountProbe) CountDatabases(ctx context.Context) (int, error) {
	n := 0
	pg := rds.NewDescribeDBInstancesPaginator(p.rds, &rds.DescribeDBInstancesInput{})
	for pg.HasMorePages() {
		page, err := pg.NextPage(ctx)
		if err != nil {
			return 0, apiError("rds", "db-instances", err)
		}
		n += len(page.DBInstances)
	}
	return n, nil
}
