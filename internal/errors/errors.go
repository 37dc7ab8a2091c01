// Package errors defines the error taxonomy of the renewal engine.
//
// Configuration and credential errors abort the invocation before any
// cloud mutation is attempted. Cloud API errors are isolated to the
// resource that produced them and surface through the renewal result
// rather than through the call stack.
package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError reports missing or invalid settings for the chosen
// auth method or service type. It is always raised before any network call.
type ConfigurationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigurationError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CredentialAcquisitionError reports a failed token exchange or
// assume-role call. Fatal for the invocation.
type CredentialAcquisitionError struct {
	AuthMethod string
	Message    string
	Suggestion string
	Err        error
}

func (e CredentialAcquisitionError) Error() string {
	msg := fmt.Sprintf("Credential acquisition failed (auth method: %s)", e.AuthMethod)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += "\n  Details: " + e.Err.Error()
	}
	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}
	return msg
}

func (e CredentialAcquisitionError) Unwrap() error {
	return e.Err
}

// CertificateValidationError reports a certificate that does not cover
// the target domain, is expired, or is malformed. No mutating call is
// attempted after it is raised.
type CertificateValidationError struct {
	Target  string
	Message string
	Err     error
}

func (e CertificateValidationError) Error() string {
	msg := "Certificate validation failed"
	if e.Target != "" {
		msg += fmt.Sprintf(" for %s", e.Target)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e CertificateValidationError) Unwrap() error {
	return e.Err
}

// CloudAPIError wraps a failed adapter call. Code carries the provider
// error code when one is available (e.g. the AWS API error code).
type CloudAPIError struct {
	Provider  string
	Operation string
	Resource  string
	Code      string
	Message   string
	Err       error
}

func (e CloudAPIError) Error() string {
	msg := fmt.Sprintf("%s API error during %s", e.Provider, e.Operation)
	if e.Resource != "" {
		msg += fmt.Sprintf(" for %s", e.Resource)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e CloudAPIError) Unwrap() error {
	return e.Err
}

// UnsupportedProviderError reports a cloud provider name with no
// registered adapter constructor.
type UnsupportedProviderError struct {
	Provider  string
	Supported []string
}

func (e UnsupportedProviderError) Error() string {
	msg := fmt.Sprintf("unsupported cloud provider: %s", e.Provider)
	if len(e.Supported) > 0 {
		msg += fmt.Sprintf(" (supported: %v)", e.Supported)
	}
	return msg
}

// UnregisteredDependencyError reports a container resolve for a key that
// was never registered. A wiring bug, fatal at startup.
type UnregisteredDependencyError struct {
	Key string
}

func (e UnregisteredDependencyError) Error() string {
	return fmt.Sprintf("dependency not registered: %s", e.Key)
}

// IsFatalBeforeMutation reports whether err belongs to the class of
// errors that must abort the invocation before any resource is touched.
func IsFatalBeforeMutation(err error) bool {
	var cfg ConfigurationError
	var cred CredentialAcquisitionError
	var cert CertificateValidationError
	var unsup UnsupportedProviderError
	var unreg UnregisteredDependencyError
	return errors.As(err, &cfg) || errors.As(err, &cred) ||
		errors.As(err, &cert) || errors.As(err, &unsup) || errors.As(err, &unreg)
}
