package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"github.com/pratik-mahalle/stagingctl/internal/config"
	"github.com/pratik-mahalle/stagingctl/internal/domain/environment"
	apperrors "github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

// LoadAWSConfig resolves region and credentials. Static keys win over a named
// profile, which wins over the SDK default chain (env, shared files, role).
func LoadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(nonEmpty(c.Region, "ap-southeast-1")),
	}
	switch {
	case c.HasStaticCredentials():
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	case c.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to load AWS configuration")
	}
	return cfg, nil
}

// NewClients builds the AWS-backed collaborators of a run
func NewClients(cfg aws.Config, atlas *AtlasCLI) environment.Clients {
	return environment.Clients{
		Databases:  NewRDSClient(cfg),
		Compute:    NewEC2Client(cfg),
		Containers: NewECSClient(cfg),
		Clusters:   atlas,
	}
}

// apiError wraps an SDK error as a PROVIDER_API_ERROR, keeping the AWS error
// code in the details when the service returned one.
func apiError(service, resource string, err error) error {
	appErr := apperrors.ProviderAPIError(service, resource, err)
	var ae smithy.APIError
	if errors.As(err, &ae) {
		appErr.WithDetails(map[string]string{
			"aws_code": ae.ErrorCode(),
			"fault":    ae.ErrorFault().String(),
		})
	}
	return appErr
}

// errorCode returns the AWS error code carried by err, if any
func errorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

func nonEmpty(v string, def string) string {
	if v == "" {
		return def
	}
	return v
}

func missing(service, resource string) error {
	return apperrors.ProviderAPIError(service, resource, fmt.Errorf("%s not found", resource))
}
