package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/certrenew/internal/config"
)

// newAssumeRoleProvider builds the assumed-role variant. When the spec
// carries an externally supplied session token the exchange is skipped
// and the token is used directly; otherwise the STS AssumeRole call runs
// once through the credential cache.
func newAssumeRoleProvider(ctx context.Context, spec config.CredentialSpec) (Provider, error) {
	if spec.SessionToken != "" {
		// Pre-exchanged session credentials were handed in; no STS call.
		return &cachedProvider{
			name: config.AuthAssumeRole,
			cache: aws.NewCredentialsCache(
				awscreds.NewStaticCredentialsProvider(spec.AccessKeyID, spec.AccessKeySecret, spec.SessionToken),
			),
		}, nil
	}

	base, err := baseCredentials(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("resolving base credentials for role assumption: %w", err)
	}

	client := sts.New(sts.Options{
		Region:      spec.Region,
		Credentials: base,
	})

	assume := stscreds.NewAssumeRoleProvider(client, spec.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName(spec)
	})

	return &cachedProvider{
		name:  config.AuthAssumeRole,
		cache: aws.NewCredentialsCache(assume),
	}, nil
}

// baseCredentials resolves the credentials signing the AssumeRole call
// itself. An explicit key pair wins; anything else resolves the ambient
// default chain so the STS request is still signed.
func baseCredentials(ctx context.Context, spec config.CredentialSpec) (aws.CredentialsProvider, error) {
	if spec.AccessKeyID != "" && spec.AccessKeySecret != "" {
		return awscreds.NewStaticCredentialsProvider(spec.AccessKeyID, spec.AccessKeySecret, ""), nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Credentials, nil
}

func sessionName(spec config.CredentialSpec) string {
	if spec.RoleSessionName != "" {
		return spec.RoleSessionName
	}
	return fmt.Sprintf("certrenew-%d", time.Now().Unix())
}
