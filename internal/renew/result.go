// Package renew implements the fetch-compare-update renewal flow over
// the cloud adapter interface. The flow is a fixed orchestration
// function; service variants differ only in which adapter calls they
// bind and which resource identifiers they iterate.
package renew

import (
	"errors"

	cerrors "github.com/systmms/certrenew/internal/errors"
)

// Status is the terminal (or initial) state of one resource's renewal.
type Status string

const (
	StatusStarted Status = "started"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// Result records the outcome of renewing one resource. Immutable once
// returned; consumed by webhook delivery and exit-code logic.
type Result struct {
	Resource        string
	Status          Status
	Message         string
	ErrorCode       string
	ErrorDetail     string
	RetryCount      int
	ExecutionTimeMs int64
	DryRun          bool
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool { return r.Status == StatusFailure }

// failureResult maps an adapter error onto a failure result, lifting
// the provider error code when one is present.
func failureResult(resource string, err error, elapsedMs int64) Result {
	res := Result{
		Resource:        resource,
		Status:          StatusFailure,
		Message:         err.Error(),
		ErrorDetail:     err.Error(),
		ExecutionTimeMs: elapsedMs,
	}
	var apiErr cerrors.CloudAPIError
	if errors.As(err, &apiErr) {
		res.ErrorCode = apiErr.Code
		res.Message = apiErr.Message
		if res.Message == "" {
			res.Message = apiErr.Error()
		}
	}
	return res
}

// AnyFailed reports whether any result in the batch failed. The process
// exit status is derived from this.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// CountByStatus tallies successes and failures for the batch summary.
func CountByStatus(results []Result) (successful, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			successful++
		case StatusFailure:
			failed++
		}
	}
	return successful, failed
}
