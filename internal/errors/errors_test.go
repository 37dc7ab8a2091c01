package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationErrorMessage(t *testing.T) {
	t.Parallel()

	err := ConfigurationError{
		Field:      "serviceType",
		Value:      "queue",
		Message:    "unsupported service type",
		Suggestion: "Use 'cdn' or 'lb'",
	}
	msg := err.Error()
	assert.Contains(t, msg, "serviceType")
	assert.Contains(t, msg, "queue")
	assert.Contains(t, msg, "Use 'cdn' or 'lb'")
}

func TestCloudAPIErrorMessage(t *testing.T) {
	t.Parallel()

	err := CloudAPIError{
		Provider:  "aws",
		Operation: "UpdateDistribution",
		Resource:  "example.com",
		Code:      "AccessDenied",
		Message:   "not allowed",
	}
	msg := err.Error()
	assert.Contains(t, msg, "aws API error during UpdateDistribution")
	assert.Contains(t, msg, "[AccessDenied]")
	assert.Contains(t, msg, "example.com")
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	wrapped := fmt.Errorf("context: %w", CredentialAcquisitionError{AuthMethod: "assume_role", Err: inner})

	var cred CredentialAcquisitionError
	assert.ErrorAs(t, wrapped, &cred)
	assert.ErrorIs(t, wrapped, inner)
}

func TestIsFatalBeforeMutation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"configuration", ConfigurationError{Message: "m"}, true},
		{"credential", CredentialAcquisitionError{AuthMethod: "platform"}, true},
		{"certificate", CertificateValidationError{Message: "expired"}, true},
		{"unsupported provider", UnsupportedProviderError{Provider: "x"}, true},
		{"unregistered dependency", UnregisteredDependencyError{Key: "k"}, true},
		{"cloud api", CloudAPIError{Provider: "aws"}, false},
		{"plain", errors.New("x"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatalBeforeMutation(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("x"), ExitFailure},
		{"configuration", ConfigurationError{}, ExitConfig},
		{"unregistered dependency", UnregisteredDependencyError{}, ExitConfig},
		{"certificate", CertificateValidationError{}, ExitCertValidation},
		{"credential", CredentialAcquisitionError{}, ExitAuth},
		{"unsupported provider", UnsupportedProviderError{}, ExitUnsupported},
		{"cloud api", CloudAPIError{}, ExitCloudAPI},
		{"wrapped configuration", fmt.Errorf("load: %w", ConfigurationError{}), ExitConfig},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
