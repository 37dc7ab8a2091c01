// Package cloud wraps provider-specific certificate APIs behind a
// uniform adapter interface. The aws adapter is fully implemented;
// alibaba and azure are registered stubs, and noop exists for tests and
// plumbing checks.
package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/config"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/secure"
)

// Adapter translates uniform fetch/push calls into one cloud provider's
// API shape. Fetch calls return the normalized fingerprint of the
// currently deployed certificate, or "" when nothing is deployed yet.
type Adapter interface {
	// Name returns the provider name the adapter is registered under.
	Name() string

	// FetchCDNFingerprint reports the deployed certificate fingerprint
	// for a CDN domain.
	FetchCDNFingerprint(ctx context.Context, domain string) (string, error)

	// PushCDNCertificate deploys cert to the CDN resource serving domain.
	PushCDNCertificate(ctx context.Context, domain string, cert *certinfo.Descriptor, key *secure.KeyMaterial) error

	// FetchListenerFingerprint reports the deployed certificate
	// fingerprint for a load balancer listener.
	FetchListenerFingerprint(ctx context.Context, instanceID string, port int) (string, error)

	// PushListenerCertificate deploys cert to a load balancer listener.
	PushListenerCertificate(ctx context.Context, instanceID string, port int, cert *certinfo.Descriptor, key *secure.KeyMaterial) error
}

// Options carries everything an adapter constructor needs. Credentials
// come pre-resolved from the credential provider; SDK transport settings
// are passed through unmodified.
type Options struct {
	Credentials aws.CredentialsProvider
	Region      string
	SDK         config.SDKSpec
	Logger      *logging.Logger
}

// Constructor builds an adapter instance from options.
type Constructor func(opts Options) (Adapter, error)
