package errors

import "errors"

// Process exit codes. Scripts key off these, so the mapping is part of
// the CLI contract.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitConfig         = 2
	ExitCertValidation = 3
	ExitAuth           = 4
	ExitUnsupported    = 5
	ExitCloudAPI       = 7
)

// ExitCode maps an error onto the process exit code. Unrecognized
// errors map to the generic failure code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cfg ConfigurationError
	var cred CredentialAcquisitionError
	var cert CertificateValidationError
	var api CloudAPIError
	var unsup UnsupportedProviderError
	var unreg UnregisteredDependencyError

	switch {
	case errors.As(err, &cfg), errors.As(err, &unreg):
		return ExitConfig
	case errors.As(err, &cert):
		return ExitCertValidation
	case errors.As(err, &cred):
		return ExitAuth
	case errors.As(err, &unsup):
		return ExitUnsupported
	case errors.As(err, &api):
		return ExitCloudAPI
	default:
		return ExitFailure
	}
}
