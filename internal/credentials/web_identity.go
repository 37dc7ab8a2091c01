package credentials

import (
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
)

// newWebIdentityProvider builds the workload-identity (OIDC) variant.
// The platform injects a short-lived identity token file; it is
// exchanged for role credentials without any static key or secret.
func newWebIdentityProvider(spec config.CredentialSpec) (Provider, error) {
	tokenFile := spec.OIDCTokenFile
	if tokenFile == "" {
		return nil, cerrors.ConfigurationError{
			Field:      "credentials.oidcTokenFile",
			Message:    "web_identity auth requires an identity token file",
			Suggestion: "Set CLOUD_OIDC_TOKEN_FILE, or rely on AWS_WEB_IDENTITY_TOKEN_FILE injected by the platform",
		}
	}

	// Fail before any network call when the injected token cannot be read.
	if _, err := os.ReadFile(tokenFile); err != nil {
		return nil, cerrors.ConfigurationError{
			Field:      "credentials.oidcTokenFile",
			Value:      tokenFile,
			Message:    "identity token file is unreadable: " + err.Error(),
			Suggestion: "Check the projected service account token volume mount",
		}
	}

	// The exchange call itself is unsigned.
	client := sts.New(sts.Options{
		Region:      spec.Region,
		Credentials: aws.AnonymousCredentials{},
	})

	provider := stscreds.NewWebIdentityRoleProvider(
		client,
		spec.RoleARN,
		stscreds.IdentityTokenFile(tokenFile),
		func(o *stscreds.WebIdentityRoleOptions) {
			o.RoleSessionName = sessionName(spec)
		},
	)

	return &cachedProvider{
		name:  config.AuthWebIdentity,
		cache: aws.NewCredentialsCache(provider),
	}, nil
}
