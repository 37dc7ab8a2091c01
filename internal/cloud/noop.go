package cloud

import (
	"context"
	"sync"

	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/secure"
)

// NoopAdapter records every call without touching any cloud API. Useful
// for plumbing checks and as a test double for the renewal core.
type NoopAdapter struct {
	mu sync.Mutex

	// DeployedFingerprint is returned by both fetch calls.
	DeployedFingerprint string
	// FetchErr and PushErr, when set, fail the corresponding calls.
	FetchErr error
	PushErr  error

	Fetches []string
	Pushes  []string
}

// NewNoopAdapter creates a recorder with no deployed certificate.
func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{}
}

func (n *NoopAdapter) Name() string { return ProviderNoop }

func (n *NoopAdapter) FetchCDNFingerprint(ctx context.Context, domain string) (string, error) {
	return n.recordFetch(domain)
}

func (n *NoopAdapter) PushCDNCertificate(ctx context.Context, domain string, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	return n.recordPush(domain)
}

func (n *NoopAdapter) FetchListenerFingerprint(ctx context.Context, instanceID string, port int) (string, error) {
	return n.recordFetch(instanceID)
}

func (n *NoopAdapter) PushListenerCertificate(ctx context.Context, instanceID string, port int, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	return n.recordPush(instanceID)
}

func (n *NoopAdapter) recordFetch(resource string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Fetches = append(n.Fetches, resource)
	if n.FetchErr != nil {
		return "", n.FetchErr
	}
	return n.DeployedFingerprint, nil
}

func (n *NoopAdapter) recordPush(resource string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.PushErr != nil {
		return n.PushErr
	}
	n.Pushes = append(n.Pushes, resource)
	return nil
}
