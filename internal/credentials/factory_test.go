package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
)

func testFactory() *Factory {
	return NewFactory(logging.New(false, true))
}

func TestCreateStaticKeyProvider(t *testing.T) {
	t.Parallel()

	provider, err := testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod:      config.AuthAccessKey,
		AccessKeyID:     "AKIAEXAMPLE",
		AccessKeySecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, config.AuthAccessKey, provider.Name())

	creds, err := provider.Credentials().Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
	assert.Empty(t, creds.SessionToken)
}

func TestCreateSessionTokenProvider(t *testing.T) {
	t.Parallel()

	provider, err := testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod:      config.AuthSessionToken,
		AccessKeyID:     "ASIAEXAMPLE",
		AccessKeySecret: "secret",
		SessionToken:    "token",
	})
	require.NoError(t, err)

	creds, err := provider.Credentials().Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token", creds.SessionToken)
}

func TestCreateMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec config.CredentialSpec
	}{
		{"access key without secret", config.CredentialSpec{
			AuthMethod:  config.AuthAccessKey,
			AccessKeyID: "AKIAEXAMPLE",
		}},
		{"session token without token", config.CredentialSpec{
			AuthMethod:      config.AuthSessionToken,
			AccessKeyID:     "ASIAEXAMPLE",
			AccessKeySecret: "secret",
		}},
		{"assume role without role arn", config.CredentialSpec{
			AuthMethod: config.AuthAssumeRole,
		}},
		{"web identity without role arn", config.CredentialSpec{
			AuthMethod:    config.AuthWebIdentity,
			OIDCTokenFile: "/var/run/secrets/token",
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := testFactory().Create(context.Background(), tt.spec)
			var cfgErr cerrors.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestCreateUnknownAuthMethod(t *testing.T) {
	t.Parallel()

	_, err := testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod: "kerberos",
	})
	var cfgErr cerrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "authMethod", cfgErr.Field)
}

// A missing or unreadable token file must fail before any network call
// and before any adapter is constructed.
func TestWebIdentityRequiresReadableTokenFile(t *testing.T) {
	t.Parallel()

	_, err := testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod: config.AuthWebIdentity,
		RoleARN:    "arn:aws:iam::123456789012:role/renewer",
	})
	var cfgErr cerrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod:    config.AuthWebIdentity,
		RoleARN:       "arn:aws:iam::123456789012:role/renewer",
		OIDCTokenFile: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "unreadable")
}

// Supplying a session token alongside a role skips the exchange call
// entirely; the token is used as-is.
func TestAssumeRoleWithSuppliedSessionToken(t *testing.T) {
	t.Parallel()

	provider, err := testFactory().Create(context.Background(), config.CredentialSpec{
		AuthMethod:      config.AuthAssumeRole,
		RoleARN:         "arn:aws:iam::123456789012:role/renewer",
		AccessKeyID:     "ASIAEXAMPLE",
		AccessKeySecret: "secret",
		SessionToken:    "presupplied",
	})
	require.NoError(t, err)

	creds, err := provider.Credentials().Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "presupplied", creds.SessionToken)
}

// Without an explicit key pair the AssumeRole call must still be signed,
// so the base provider resolves the ambient default chain rather than
// sending the STS request anonymously. Uses t.Setenv, so no t.Parallel.
func TestBaseCredentialsFallsBackToAmbientChain(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAAMBIENT")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "ambient-secret")
	t.Setenv("AWS_SESSION_TOKEN", "")

	base, err := baseCredentials(context.Background(), config.CredentialSpec{})
	require.NoError(t, err)
	require.NotNil(t, base)

	creds, err := base.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAAMBIENT", creds.AccessKeyID)
}

func TestBaseCredentialsPrefersExplicitKeyPair(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAAMBIENT")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "ambient-secret")

	base, err := baseCredentials(context.Background(), config.CredentialSpec{
		AccessKeyID:     "AKIAEXPLICIT",
		AccessKeySecret: "explicit-secret",
	})
	require.NoError(t, err)

	creds, err := base.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXPLICIT", creds.AccessKeyID)
}

func TestSessionNameDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "renewer-7", sessionName(config.CredentialSpec{RoleSessionName: "renewer-7"}))
	assert.Contains(t, sessionName(config.CredentialSpec{}), "certrenew-")
}

func TestSessionTokenFileHelper(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("header.payload.sig"), 0o600))

	provider, err := newWebIdentityProvider(config.CredentialSpec{
		AuthMethod:    config.AuthWebIdentity,
		RoleARN:       "arn:aws:iam::123456789012:role/renewer",
		OIDCTokenFile: tokenFile,
		Region:        "eu-west-1",
	})
	require.NoError(t, err)
	assert.Equal(t, config.AuthWebIdentity, provider.Name())
}
