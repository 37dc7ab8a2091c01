package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/systmms/certrenew/internal/certinfo"
	"github.com/systmms/certrenew/internal/config"
	"github.com/systmms/certrenew/internal/renew"
)

// Builder stamps events with the invocation's source, target and
// certificate context so that callers only supply the per-resource
// result.
type Builder struct {
	Version     string
	Spec        *config.Spec
	Certificate *certinfo.Descriptor
}

// NewBuilder creates a builder for one renewal invocation.
func NewBuilder(version string, spec *config.Spec, cert *certinfo.Descriptor) *Builder {
	return &Builder{Version: version, Spec: spec, Certificate: cert}
}

// StartedEvent announces that the invocation began.
func (b *Builder) StartedEvent() Event {
	event := b.base(EventRenewalStarted)
	event.Result = ResultInfo{
		Status:  string(renew.StatusStarted),
		Message: "certificate renewal started",
	}
	return event
}

// ResultEvent converts one resource's renewal result into an event.
func (b *Builder) ResultEvent(result renew.Result) Event {
	event := b.base(eventTypeFor(result.Status))
	event.Result = ResultInfo{
		Status:       string(result.Status),
		Message:      result.Message,
		ErrorCode:    optional(result.ErrorCode),
		ErrorDetails: optional(result.ErrorDetail),
		RetryCount:   result.RetryCount,
	}
	event.Metadata.ExecutionTimeMs = result.ExecutionTimeMs
	return event
}

// BatchEvent summarizes the whole invocation. Its certificate field is
// null and its metadata carries the resource tallies.
func (b *Builder) BatchEvent(results []renew.Result, elapsed time.Duration) Event {
	event := b.base(EventBatchCompleted)
	event.Certificate = nil

	successful, failed := renew.CountByStatus(results)
	total := len(results)
	event.Metadata.TotalResources = &total
	event.Metadata.SuccessfulResources = &successful
	event.Metadata.FailedResources = &failed
	event.Metadata.ExecutionTimeMs = elapsed.Milliseconds()

	status := renew.StatusSuccess
	message := "all resources renewed"
	if failed > 0 {
		status = renew.StatusFailure
		message = "one or more resources failed to renew"
	}
	event.Result = ResultInfo{
		Status:  string(status),
		Message: message,
	}
	return event
}

func (b *Builder) base(eventType EventType) Event {
	event := Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Source: Source{
			ServiceType:   b.Spec.ServiceType,
			CloudProvider: b.Spec.CloudProvider,
			Region:        b.Spec.Region,
		},
		Target: b.target(),
		Metadata: Metadata{
			Version:     b.Version,
			ForceUpdate: b.Spec.ForceUpdate,
			DryRun:      b.Spec.DryRun,
		},
	}
	if b.Certificate != nil {
		event.Certificate = &Certificate{
			Fingerprint: b.Certificate.Fingerprint(),
			NotAfter:    b.Certificate.NotAfter().UTC().Format(time.RFC3339),
			NotBefore:   b.Certificate.NotBefore().UTC().Format(time.RFC3339),
			Issuer:      b.Certificate.Issuer(),
		}
	}
	return event
}

func (b *Builder) target() Target {
	var target Target
	if b.Spec.CDN != nil {
		target.DomainNames = b.Spec.CDN.DomainNames
	}
	if b.Spec.LB != nil {
		target.InstanceIDs = b.Spec.LB.InstanceIDs
		if b.Spec.LB.ListenerPort > 0 {
			port := b.Spec.LB.ListenerPort
			target.ListenerPort = &port
		}
	}
	return target
}

func eventTypeFor(status renew.Status) EventType {
	switch status {
	case renew.StatusSuccess:
		return EventRenewalSuccess
	case renew.StatusFailure:
		return EventRenewalFailed
	case renew.StatusSkipped:
		return EventRenewalSkipped
	default:
		return EventRenewalStarted
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
