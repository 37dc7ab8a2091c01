package credentials

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/systmms/certrenew/internal/config"
)

// newStaticKeyProvider builds the static-key variant from a long-lived
// access key pair.
func newStaticKeyProvider(spec config.CredentialSpec) Provider {
	return &cachedProvider{
		name: config.AuthAccessKey,
		cache: aws.NewCredentialsCache(
			awscreds.NewStaticCredentialsProvider(spec.AccessKeyID, spec.AccessKeySecret, ""),
		),
	}
}

// newSessionTokenProvider builds the session-token variant from an
// externally supplied temporary credential triple. No exchange call is
// made; the token is used as-is until it expires.
func newSessionTokenProvider(spec config.CredentialSpec) Provider {
	return &cachedProvider{
		name: config.AuthSessionToken,
		cache: aws.NewCredentialsCache(
			awscreds.NewStaticCredentialsProvider(spec.AccessKeyID, spec.AccessKeySecret, spec.SessionToken),
		),
	}
}
