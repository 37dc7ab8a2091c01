// Package webhook delivers renewal events to an HTTP endpoint. Delivery
// is best effort: each event is sent on its own goroutine with a bounded
// retry budget, and failures never reach the renewal caller.
package webhook

import (
	"time"
)

// EventType identifies what a webhook event reports.
type EventType string

const (
	EventRenewalStarted EventType = "renewal_started"
	EventRenewalSuccess EventType = "renewal_success"
	EventRenewalFailed  EventType = "renewal_failed"
	EventRenewalSkipped EventType = "renewal_skipped"
	EventBatchCompleted EventType = "batch_completed"

	// EventWildcard in the enabled-events list enables every type.
	EventWildcard = "all"
)

// Event is the wire payload POSTed to the webhook endpoint. The schema
// is fixed regardless of cloud provider. Events are immutable after
// construction.
type Event struct {
	EventID     string       `json:"event_id"`
	Timestamp   time.Time    `json:"timestamp"`
	EventType   EventType    `json:"event_type"`
	Source      Source       `json:"source"`
	Target      Target       `json:"target"`
	Certificate *Certificate `json:"certificate"`
	Result      ResultInfo   `json:"result"`
	Metadata    Metadata     `json:"metadata"`
}

// Source identifies the renewal context the event came from.
type Source struct {
	ServiceType   string `json:"service_type"`
	CloudProvider string `json:"cloud_provider"`
	Region        string `json:"region"`
}

// Target identifies the renewed resources. DomainNames is set for CDN
// targets, InstanceIDs and ListenerPort for load balancer targets.
type Target struct {
	DomainNames  []string `json:"domain_names"`
	InstanceIDs  []string `json:"instance_ids"`
	ListenerPort *int     `json:"listener_port"`
}

// Certificate summarizes the renewed certificate. Nil only for
// batch_completed events.
type Certificate struct {
	Fingerprint string `json:"fingerprint"`
	NotAfter    string `json:"not_after"`
	NotBefore   string `json:"not_before"`
	Issuer      string `json:"issuer"`
}

// ResultInfo mirrors the renewal outcome in the payload.
type ResultInfo struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	ErrorCode    *string `json:"error_code"`
	ErrorDetails *string `json:"error_details"`
	RetryCount   int     `json:"retry_count"`
}

// Metadata carries invocation-level context. The resource tallies are
// only set on batch_completed events.
type Metadata struct {
	Version             string `json:"version"`
	ExecutionTimeMs     int64  `json:"execution_time_ms"`
	TotalResources      *int   `json:"total_resources"`
	SuccessfulResources *int   `json:"successful_resources"`
	FailedResources     *int   `json:"failed_resources"`
	ForceUpdate         bool   `json:"force_update"`
	DryRun              bool   `json:"dry_run"`
}
