package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/cloud"
	"github.com/systmms/certrenew/internal/config"
	"github.com/systmms/certrenew/internal/container"
	"github.com/systmms/certrenew/internal/credentials"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/renew"
	"github.com/systmms/certrenew/internal/secure"
	"github.com/systmms/certrenew/internal/webhook"
)

func NewRenewCommand(cfg *config.Config, version string) *cobra.Command {
	var (
		force        bool
		webhookGrace time.Duration
	)

	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Renew the certificate on the configured resources",
		Long: `Fetch the deployed certificate fingerprint for each configured
resource, compare it against the new certificate, and update only the
resources that differ. Resources are processed sequentially in input
order; one resource's failure does not stop the rest.

Examples:
  # Renew using certrenew.yaml plus environment overrides
  certrenew renew

  # Preview without touching any resource
  certrenew --dry-run renew

  # Update even when the deployed certificate already matches
  certrenew renew --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if force {
				cfg.Spec.ForceUpdate = true
			}

			results, err := executeRenewal(cmd.Context(), cfg, version, webhookGrace)
			if err != nil {
				return err
			}
			if renew.AnyFailed(results) {
				successful, failed := renew.CountByStatus(results)
				return fmt.Errorf("%d of %d resources failed to renew (%d succeeded)",
					failed, len(results), successful)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Update even when fingerprints match")
	cmd.Flags().DurationVar(&webhookGrace, "webhook-grace", 10*time.Second, "How long to wait for in-flight webhook deliveries before exit")
	return cmd
}

// executeRenewal wires the invocation's components through the
// container and runs the renewal. Configuration and credential problems
// surface as errors before any resource is touched; per-resource cloud
// failures are carried in the results.
func executeRenewal(ctx context.Context, cfg *config.Config, version string, webhookGrace time.Duration) ([]renew.Result, error) {
	webhook.InitMetrics()
	spec := cfg.Spec
	start := time.Now()

	certPEM, key, err := certMaterial(spec)
	if err != nil {
		return nil, err
	}
	cert, err := certinfo.Parse(certPEM, nil)
	if err != nil {
		return nil, err
	}

	c := container.New()
	c.RegisterInstance("spec", spec)
	c.Register("credentialFactory", func() (interface{}, error) {
		return credentials.NewFactory(cfg.Logger), nil
	}, true)
	c.Register("adapterFactory", func() (interface{}, error) {
		return cloud.NewFactory(), nil
	}, true)

	resolved, err := c.Resolve("credentialFactory")
	if err != nil {
		return nil, err
	}
	credFactory := resolved.(*credentials.Factory)

	provider, err := credFactory.Create(ctx, spec.Credentials)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("Credentials resolved via %s", provider.Name())

	resolved, err = c.Resolve("adapterFactory")
	if err != nil {
		return nil, err
	}
	adapterFactory := resolved.(*cloud.Factory)

	adapter, err := adapterFactory.GetAdapter(spec.CloudProvider, cloud.Options{
		Credentials: provider.Credentials(),
		Region:      resolveRegion(ctx, spec, cfg),
		SDK:         spec.SDK,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	renewer, err := renew.New(spec.ServiceType, renew.Options{
		Adapter:     adapter,
		Certificate: cert,
		Key:         key,
		Logger:      cfg.Logger,
		ForceUpdate: spec.ForceUpdate,
		DryRun:      spec.DryRun,
	}, spec)
	if err != nil {
		return nil, err
	}

	builder := webhook.NewBuilder(version, spec, cert)
	svc := webhook.NewService(spec.Webhook, builder, cfg.Logger)
	defer svc.Close(webhookGrace)

	svc.SendEvent(ctx, builder.StartedEvent())

	results, renewErr := renewer.Renew(ctx)
	key.Destroy()

	for _, result := range results {
		svc.SendEvent(ctx, builder.ResultEvent(result))
	}
	// A fatal abort produced no per-resource outcomes; a summary here
	// would misreport the invocation as a clean zero-resource success.
	if renewErr == nil {
		svc.SendBatchSummary(ctx, results, time.Since(start))
	}

	return results, renewErr
}

// certMaterial picks the certificate and key for the configured service
// type.
func certMaterial(spec *config.Spec) ([]byte, *secure.KeyMaterial, error) {
	var pemCert []byte
	var key *secure.KeyMaterial

	switch spec.ServiceType {
	case config.ServiceCDN:
		if spec.CDN != nil {
			pemCert, key = spec.CDN.CertPEM, spec.CDN.Key
		}
	case config.ServiceLoadBalancer:
		if spec.LB != nil {
			pemCert, key = spec.LB.CertPEM, spec.LB.Key
		}
	}

	if len(pemCert) == 0 || key == nil {
		return nil, nil, cerrors.ConfigurationError{
			Field:      "certificate",
			Message:    "certificate or private key material is missing",
			Suggestion: "Set CDN_CERT/CDN_CERT_PRIVATE_KEY (or their _FILE variants) or the config file equivalents",
		}
	}
	return pemCert, key, nil
}

// resolveRegion prefers the configured region, then the platform
// metadata service for platform auth, then the SDK default region.
func resolveRegion(ctx context.Context, spec *config.Spec, cfg *config.Config) string {
	if spec.Region != "" {
		return spec.Region
	}
	if spec.AuthMethod == config.AuthPlatform {
		if region, err := credentials.PlatformRegion(ctx); err == nil && region != "" {
			return region
		}
		cfg.Logger.Warn("Could not detect region from instance metadata, using us-east-1")
	}
	return "us-east-1"
}
