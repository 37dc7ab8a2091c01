package cloud

import (
	"context"

	"github.com/systmms/certrenew/internal/certinfo"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/secure"
)

// stubAdapter backs providers that are registered but not yet wired to
// an SDK. Every call fails with a NotImplemented cloud error so that a
// misconfigured provider surfaces in the renewal result instead of
// silently succeeding.
type stubAdapter struct {
	provider string
}

func newAlibabaAdapter(opts Options) (Adapter, error) {
	return &stubAdapter{provider: ProviderAlibaba}, nil
}

func newAzureAdapter(opts Options) (Adapter, error) {
	return &stubAdapter{provider: ProviderAzure}, nil
}

func (s *stubAdapter) Name() string { return s.provider }

func (s *stubAdapter) FetchCDNFingerprint(ctx context.Context, domain string) (string, error) {
	return "", s.notImplemented("FetchCDNFingerprint", domain)
}

func (s *stubAdapter) PushCDNCertificate(ctx context.Context, domain string, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	return s.notImplemented("PushCDNCertificate", domain)
}

func (s *stubAdapter) FetchListenerFingerprint(ctx context.Context, instanceID string, port int) (string, error) {
	return "", s.notImplemented("FetchListenerFingerprint", instanceID)
}

func (s *stubAdapter) PushListenerCertificate(ctx context.Context, instanceID string, port int, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	return s.notImplemented("PushListenerCertificate", instanceID)
}

func (s *stubAdapter) notImplemented(operation, resource string) error {
	return cerrors.CloudAPIError{
		Provider:  s.provider,
		Operation: operation,
		Resource:  resource,
		Code:      "NotImplemented",
		Message:   "adapter for this provider is registered but not implemented",
	}
}
