// Package credentials selects and constructs the credential source used
// to authenticate cloud API calls. Six variants are supported; each one
// yields an aws.CredentialsProvider wrapped in a process-lifetime cache,
// so a token exchange happens at most once per invocation. The process
// is short-lived, so there is no background refresh.
package credentials

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Provider produces an authenticated credential source for the cloud SDK.
type Provider interface {
	// Name returns the auth method name of this variant.
	Name() string

	// Credentials returns the credential source handed to SDK clients.
	Credentials() aws.CredentialsProvider

	// Validate performs the variant's one-time acquisition check. For
	// exchange-based variants this is the STS/OIDC call; its result is
	// cached for the rest of the process lifetime.
	Validate(ctx context.Context) error
}

// cachedProvider is the common shape of all variants: a name plus a
// cached credential source.
type cachedProvider struct {
	name  string
	cache *aws.CredentialsCache
}

func (p *cachedProvider) Name() string { return p.name }

func (p *cachedProvider) Credentials() aws.CredentialsProvider { return p.cache }

func (p *cachedProvider) Validate(ctx context.Context) error {
	_, err := p.cache.Retrieve(ctx)
	return err
}
