package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
)

// StubPublisher logs audit events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit sink.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub audit event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// Publish logs the audit event.
func (p *StubPublisher) Publish(_ context.Context, event domain.AuditEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"details":    event.Details,
	}
	p.logEvent(event.Type, event.UserID, event.At, payload)
	return nil
}

// PublishDecision logs the permission decision record.
func (p *StubPublisher) PublishDecision(_ context.Context, record domain.PermissionDecisionRecord) error {
	payload := map[string]any{
		"profession":      record.Profession,
		"organization_id": record.OrganizationID,
		"resource":        record.Resource,
		"action":          record.Action,
		"outcome":         record.Outcome,
		"reason":          record.Reason,
		"rule_trace":      record.RuleTrace,
	}
	p.logEvent(domain.AuditPermissionDecision, record.UserID, record.At, payload)
	return nil
}

var _ port.AuditSink = (*StubPublisher)(nil)
