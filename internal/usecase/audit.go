package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
)

// AuditRecorder wraps the audit sink with fire-and-forget semantics. A
// publish failure is logged and swallowed; audit must never fail the
// request that produced the event.
type AuditRecorder struct {
	sink   port.AuditSink
	logger *zap.Logger
}

// NewAuditRecorder constructs an AuditRecorder. A nil sink disables
// recording entirely.
func NewAuditRecorder(sink port.AuditSink, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{sink: sink, logger: logger}
}

// Record publishes a security event, filling in event id and timestamp
// defaults.
func (r *AuditRecorder) Record(ctx context.Context, event domain.AuditEvent) {
	if r == nil || r.sink == nil {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if err := r.sink.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish audit event",
			zap.String("event_type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

// RecordDecision publishes a permission decision record.
func (r *AuditRecorder) RecordDecision(ctx context.Context, record domain.PermissionDecisionRecord) {
	if r == nil || r.sink == nil {
		return
	}

	if record.EventID == "" {
		record.EventID = uuid.NewString()
	}
	if record.At.IsZero() {
		record.At = time.Now().UTC()
	}
	if record.CatalogVersion == "" {
		record.CatalogVersion = domain.CatalogVersion
	}

	if err := r.sink.PublishDecision(ctx, record); err != nil {
		r.logger.Warn("Failed to publish permission decision",
			zap.String("user_id", record.UserID),
			zap.String("resource", record.Resource),
			zap.String("action", record.Action),
			zap.Error(err),
		)
	}
}
