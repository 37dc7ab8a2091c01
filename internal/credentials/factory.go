package credentials

import (
	"context"

	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
)

// Factory selects and constructs a credential provider variant from a
// CredentialSpec.
type Factory struct {
	logger *logging.Logger
}

// NewFactory creates a credential provider factory.
func NewFactory(logger *logging.Logger) *Factory {
	return &Factory{logger: logger}
}

// Create dispatches on spec.AuthMethod, builds the matching variant and
// runs its one-time acquisition check. Exchange-based variants perform
// their STS/OIDC call here; the result stays cached for the process
// lifetime.
func (f *Factory) Create(ctx context.Context, spec config.CredentialSpec) (Provider, error) {
	provider, err := f.build(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := provider.Validate(ctx); err != nil {
		// SDK errors can echo request material back; scrub the secrets
		// before the message reaches the log.
		f.logger.Error("credential validation failed: %s",
			logging.Redact(err.Error(), []string{spec.AccessKeySecret, spec.SessionToken}))
		return nil, cerrors.CredentialAcquisitionError{
			AuthMethod: spec.AuthMethod,
			Message:    "credential exchange failed",
			Suggestion: suggestionFor(spec.AuthMethod),
			Err:        err,
		}
	}

	f.logger.Debug("credential provider ready: %s", provider.Name())
	return provider, nil
}

func (f *Factory) build(ctx context.Context, spec config.CredentialSpec) (Provider, error) {
	switch spec.AuthMethod {
	case config.AuthAccessKey:
		if spec.AccessKeyID == "" || spec.AccessKeySecret == "" {
			return nil, missingFields(spec.AuthMethod, "access key id and secret")
		}
		return newStaticKeyProvider(spec), nil

	case config.AuthSessionToken:
		if spec.AccessKeyID == "" || spec.AccessKeySecret == "" || spec.SessionToken == "" {
			return nil, missingFields(spec.AuthMethod, "access key id, secret and session token")
		}
		return newSessionTokenProvider(spec), nil

	case config.AuthAssumeRole:
		if spec.RoleARN == "" {
			return nil, missingFields(spec.AuthMethod, "role ARN")
		}
		return newAssumeRoleProvider(ctx, spec)

	case config.AuthWebIdentity:
		if spec.RoleARN == "" {
			return nil, missingFields(spec.AuthMethod, "role ARN")
		}
		return newWebIdentityProvider(spec)

	case config.AuthPlatform:
		return newPlatformProvider(spec), nil

	case config.AuthEnvironment:
		return newEnvironmentProvider(ctx, spec)

	default:
		return nil, cerrors.ConfigurationError{
			Field:      "authMethod",
			Value:      spec.AuthMethod,
			Message:    "unsupported authentication method",
			Suggestion: "Use one of: access_key, session_token, assume_role, web_identity, platform, env",
		}
	}
}

func missingFields(authMethod, what string) error {
	return cerrors.ConfigurationError{
		Field:   "credentials",
		Message: authMethod + " auth requires " + what,
	}
}

func suggestionFor(authMethod string) string {
	switch authMethod {
	case config.AuthAssumeRole:
		return "Check that the trust policy of the role allows your principal"
	case config.AuthWebIdentity:
		return "Check the role's trust policy for the cluster OIDC provider and the token audience"
	case config.AuthPlatform:
		return "Check that the workload runs with an instance profile and the metadata endpoint is reachable"
	case config.AuthEnvironment:
		return "Check the ambient credential environment of the container"
	default:
		return "Check the configured credentials and permissions"
	}
}
