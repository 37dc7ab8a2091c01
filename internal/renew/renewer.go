package renew

import (
	"context"
	"fmt"
	"time"

	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/cloud"
	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/secure"
)

// Renewer renews one service type's resources sequentially, in input
// order, and returns one result per resource. A non-nil error means the
// invocation failed before any mutation was attempted; per-resource
// cloud API failures are carried inside the results instead.
type Renewer interface {
	Renew(ctx context.Context) ([]Result, error)
}

// Options carries everything a renewer needs. The certificate and key
// are resolved once per invocation and shared across resources.
type Options struct {
	Adapter     cloud.Adapter
	Certificate *certinfo.Descriptor
	Key         *secure.KeyMaterial
	Logger      *logging.Logger
	ForceUpdate bool
	DryRun      bool
}

// core holds the shared fetch-compare-update flow. The two service
// variants embed it and bind their own adapter calls.
type core struct {
	Options
}

type fetchFunc func(ctx context.Context) (string, error)
type pushFunc func(ctx context.Context) error

// renewResource runs the fixed flow for one resource: fetch the
// deployed fingerprint, compare, then either skip or push. The core
// never retries; SDK-level retry is configured on the adapter's
// transport and is opaque here.
func (c *core) renewResource(ctx context.Context, resource string, fetch fetchFunc, push pushFunc) Result {
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	deployed, err := fetch(ctx)
	if err != nil {
		c.Logger.Error("Fingerprint fetch failed for %s: %v", resource, err)
		return failureResult(resource, err, elapsed())
	}

	desired := c.Certificate.Fingerprint()
	if deployed == "" {
		c.Logger.Debug("No certificate deployed on %s yet", resource)
	}

	if !c.ForceUpdate && deployed == desired {
		c.Logger.Info("Certificate on %s already current, skipping", resource)
		return Result{
			Resource:        resource,
			Status:          StatusSkipped,
			Message:         "deployed certificate matches, no update needed",
			ExecutionTimeMs: elapsed(),
			DryRun:          c.DryRun,
		}
	}

	if c.DryRun {
		c.Logger.Info("[dry-run] Would update certificate on %s", resource)
		return Result{
			Resource:        resource,
			Status:          StatusSuccess,
			Message:         "dry-run: certificate update skipped, no mutating call made",
			ExecutionTimeMs: elapsed(),
			DryRun:          true,
		}
	}

	if err := push(ctx); err != nil {
		c.Logger.Error("Certificate update failed for %s: %v", resource, err)
		return failureResult(resource, err, elapsed())
	}

	c.Logger.Info("Certificate updated on %s", resource)
	return Result{
		Resource:        resource,
		Status:          StatusSuccess,
		Message:         "certificate updated",
		ExecutionTimeMs: elapsed(),
	}
}

// validate rejects expired or not-yet-valid certificates, and for CDN
// targets certificates that do not cover the domain. Raised before any
// adapter call.
func (c *core) validate(domains []string) error {
	now := time.Now()
	if !c.Certificate.ValidAt(now) {
		return cerrors.CertificateValidationError{
			Message: fmt.Sprintf("certificate is not valid at %s (notBefore=%s notAfter=%s)",
				now.Format(time.RFC3339),
				c.Certificate.NotBefore().Format(time.RFC3339),
				c.Certificate.NotAfter().Format(time.RFC3339)),
		}
	}
	for _, domain := range domains {
		if !c.Certificate.CoversDomain(domain) {
			return cerrors.CertificateValidationError{
				Target:  domain,
				Message: fmt.Sprintf("certificate covers %v, not the target domain", c.Certificate.Domains()),
			}
		}
	}
	return nil
}

// CDNRenewer renews the certificate on a set of CDN domains.
type CDNRenewer struct {
	core
	domains []string
}

// NewCDNRenewer creates a renewer over the given CDN domains.
func NewCDNRenewer(opts Options, domains []string) *CDNRenewer {
	return &CDNRenewer{core: core{Options: opts}, domains: domains}
}

func (r *CDNRenewer) Renew(ctx context.Context) ([]Result, error) {
	if len(r.domains) == 0 {
		return nil, cerrors.ConfigurationError{
			Field:      "domainNames",
			Message:    "no CDN domain configured",
			Suggestion: "Set CDN_DOMAIN_NAME or domainNames in the config file",
		}
	}
	if err := r.validate(r.domains); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(r.domains))
	for _, domain := range r.domains {
		domain := domain
		results = append(results, r.renewResource(ctx, domain,
			func(ctx context.Context) (string, error) {
				return r.Adapter.FetchCDNFingerprint(ctx, domain)
			},
			func(ctx context.Context) error {
				return r.Adapter.PushCDNCertificate(ctx, domain, r.Certificate, r.Key)
			},
		))
	}
	return results, nil
}

// LBRenewer renews the certificate on load balancer listeners.
type LBRenewer struct {
	core
	instanceIDs []string
	port        int
}

// NewLBRenewer creates a renewer over the given load balancer
// instances, all sharing one listener port.
func NewLBRenewer(opts Options, instanceIDs []string, port int) *LBRenewer {
	return &LBRenewer{core: core{Options: opts}, instanceIDs: instanceIDs, port: port}
}

func (r *LBRenewer) Renew(ctx context.Context) ([]Result, error) {
	if len(r.instanceIDs) == 0 {
		return nil, cerrors.ConfigurationError{
			Field:      "instanceIds",
			Message:    "no load balancer instance configured",
			Suggestion: "Set LB_INSTANCE_ID or instanceIds in the config file",
		}
	}
	// Listener targets carry no hostname, so only temporal validity is
	// checked here.
	if err := r.validate(nil); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(r.instanceIDs))
	for _, id := range r.instanceIDs {
		id := id
		results = append(results, r.renewResource(ctx, id,
			func(ctx context.Context) (string, error) {
				return r.Adapter.FetchListenerFingerprint(ctx, id, r.port)
			},
			func(ctx context.Context) error {
				return r.Adapter.PushListenerCertificate(ctx, id, r.port, r.Certificate, r.Key)
			},
		))
	}
	return results, nil
}

// CompositeRenewer runs inner renewers in order and concatenates their
// results. A fatal error from one inner renewer stops the run; results
// collected so far are still returned.
type CompositeRenewer struct {
	inner []Renewer
}

// NewCompositeRenewer wraps the given renewers. Order is preserved.
func NewCompositeRenewer(inner ...Renewer) *CompositeRenewer {
	return &CompositeRenewer{inner: inner}
}

func (r *CompositeRenewer) Renew(ctx context.Context) ([]Result, error) {
	var all []Result
	for _, inner := range r.inner {
		results, err := inner.Renew(ctx)
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// New builds the renewer for the configured service type.
func New(serviceType string, opts Options, spec *config.Spec) (Renewer, error) {
	switch serviceType {
	case config.ServiceCDN:
		var domains []string
		if spec.CDN != nil {
			domains = spec.CDN.DomainNames
		}
		return NewCDNRenewer(opts, domains), nil
	case config.ServiceLoadBalancer:
		var ids []string
		port := 443
		if spec.LB != nil {
			ids = spec.LB.InstanceIDs
			if spec.LB.ListenerPort > 0 {
				port = spec.LB.ListenerPort
			}
		}
		return NewLBRenewer(opts, ids, port), nil
	default:
		return nil, cerrors.ConfigurationError{
			Field:      "serviceType",
			Value:      serviceType,
			Message:    "unknown service type",
			Suggestion: "Use 'cdn' or 'lb'",
		}
	}
}
