package webhook

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/systmms/certrenew/internal/config"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/renew"
)

// Service dispatches events asynchronously. Each delivery runs on its
// own goroutine so a slow or unreachable endpoint never blocks renewal.
// A disabled service (no URL configured) is a no-op and never errors.
type Service struct {
	client  *Client
	builder *Builder
	logger  *logging.Logger
	enabled map[string]bool

	// eventWG covers individual event deliveries; the batch summary
	// waits on it so receivers observe per-resource events first.
	// allWG additionally covers the summary and backs Close.
	eventWG sync.WaitGroup
	allWG   sync.WaitGroup
}

// NewService creates the delivery service. A nil spec or empty URL
// yields a disabled service.
func NewService(spec *config.WebhookSpec, builder *Builder, logger *logging.Logger) *Service {
	s := &Service{
		builder: builder,
		logger:  logger,
		enabled: make(map[string]bool),
	}
	if spec == nil || spec.URL == "" {
		return s
	}

	s.client = NewClient(spec.URL, spec.Timeout, spec.RetryAttempts, spec.RetryDelay)
	for _, name := range spec.EnabledEvents {
		s.enabled[strings.ToLower(strings.TrimSpace(name))] = true
	}
	if len(s.enabled) == 0 {
		s.enabled[EventWildcard] = true
	}
	return s
}

// Enabled reports whether the service will attempt any delivery.
func (s *Service) Enabled() bool { return s.client != nil }

// SendEvent hands the event off to its own delivery goroutine and
// returns immediately. Filtered and disabled sends are silent no-ops.
func (s *Service) SendEvent(ctx context.Context, event Event) {
	if !s.shouldSend(event.EventType) {
		return
	}

	s.eventWG.Add(1)
	s.allWG.Add(1)
	go func() {
		defer s.eventWG.Done()
		defer s.allWG.Done()
		s.deliver(ctx, event)
	}()
}

// SendBatchSummary builds the batch_completed event and enqueues it
// after every individual delivery has finished, so that the summary is
// never observed before the events it summarizes.
func (s *Service) SendBatchSummary(ctx context.Context, results []renew.Result, elapsed time.Duration) {
	if !s.shouldSend(EventBatchCompleted) {
		return
	}

	event := s.builder.BatchEvent(results, elapsed)
	s.allWG.Add(1)
	go func() {
		defer s.allWG.Done()
		s.eventWG.Wait()
		s.deliver(ctx, event)
	}()
}

// Close waits up to grace for in-flight deliveries, then gives up.
// Deliveries still running are abandoned; they hold no shared state.
func (s *Service) Close(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.allWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("Webhook deliveries still in flight after %s, abandoning", grace)
	}
}

func (s *Service) deliver(ctx context.Context, event Event) {
	if err := s.client.Deliver(ctx, event); err != nil {
		incrementFailed()
		s.logger.Warn("Webhook delivery failed for %s event %s: %v", event.EventType, event.EventID, err)
		return
	}
	incrementDelivered()
	s.logger.Debug("Delivered %s event %s", event.EventType, event.EventID)
}

func (s *Service) shouldSend(eventType EventType) bool {
	if s.client == nil {
		return false
	}
	if s.enabled[EventWildcard] {
		return true
	}
	return s.enabled[strings.ToLower(string(eventType))]
}
