package credentials

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/systmms/certrenew/internal/config"
)

// newPlatformProvider builds the platform-injected variant: role
// credentials served by the instance metadata endpoint of the compute
// platform the process runs on.
func newPlatformProvider(spec config.CredentialSpec) Provider {
	return &cachedProvider{
		name:  config.AuthPlatform,
		cache: aws.NewCredentialsCache(ec2rolecreds.New()),
	}
}

// PlatformRegion asks the instance metadata service for the region the
// workload runs in. Used when no region is configured explicitly.
func PlatformRegion(ctx context.Context) (string, error) {
	client := imds.New(imds.Options{})
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", err
	}
	return out.Region, nil
}
