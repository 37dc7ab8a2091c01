package credentials

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/systmms/certrenew/internal/config"
)

// newEnvironmentProvider builds the environment-derived variant: the
// SDK's default resolution chain (env vars, shared config, SSO cache,
// container credentials) decides where credentials come from. Nothing is
// required in the renewal configuration itself.
func newEnvironmentProvider(ctx context.Context, spec config.CredentialSpec) (Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if spec.Region != "" {
		opts = append(opts, awsconfig.WithRegion(spec.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &cachedProvider{
		name:  config.AuthEnvironment,
		cache: aws.NewCredentialsCache(cfg.Credentials),
	}, nil
}
