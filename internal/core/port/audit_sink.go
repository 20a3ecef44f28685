package port

import (
	"context"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// AuditSink receives security-relevant events. Implementations are
// fire-and-forget: a publish failure must never fail the primary request,
// so callers log and continue.
type AuditSink interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
	PublishDecision(ctx context.Context, record domain.PermissionDecisionRecord) error
}
