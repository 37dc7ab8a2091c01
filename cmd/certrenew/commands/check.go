package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/cloud"
	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
)

func NewCheckCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and certificate without touching any resource",
		Long: `Load the configuration, parse the certificate material and verify
that the certificate is currently valid and covers the configured CDN
domains. No network call is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			spec := cfg.Spec

			factory := cloud.NewFactory()
			if !factory.IsSupported(spec.CloudProvider) {
				return cerrors.UnsupportedProviderError{
					Provider:  spec.CloudProvider,
					Supported: factory.SupportedProviders(),
				}
			}

			certPEM, _, err := certMaterial(spec)
			if err != nil {
				return err
			}
			cert, err := certinfo.Parse(certPEM, nil)
			if err != nil {
				return err
			}

			now := time.Now()
			if !cert.ValidAt(now) {
				return cerrors.CertificateValidationError{
					Message: fmt.Sprintf("certificate is not valid at %s (notAfter=%s)",
						now.Format(time.RFC3339), cert.NotAfter().Format(time.RFC3339)),
				}
			}
			if spec.ServiceType == config.ServiceCDN && spec.CDN != nil {
				for _, domain := range spec.CDN.DomainNames {
					if !cert.CoversDomain(domain) {
						return cerrors.CertificateValidationError{
							Target:  domain,
							Message: fmt.Sprintf("certificate covers %v, not the target domain", cert.Domains()),
						}
					}
				}
			}

			cfg.Logger.Info("Configuration OK: provider=%s service=%s", spec.CloudProvider, spec.ServiceType)
			cfg.Logger.Info("Certificate OK: fingerprint=%s expires=%s", cert.Fingerprint(), cert.NotAfter().Format(time.RFC3339))
			return nil
		},
	}
	return cmd
}
