package port

import (
	"context"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// SessionRepository persists session state. The ACTIVE to TERMINATED
// transition is one-way; Terminate on an already terminated session is a
// no-op at the store level.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time, ip, userAgent *string) error
	// UpdateActiveProfession rewrites the active role in place for a
	// still-active session. Returns domain updated row count semantics via
	// error: repository.ErrNotFound when the session is missing or already
	// terminated.
	UpdateActiveProfession(ctx context.Context, id string, profession domain.Profession) error
	SetRefreshToken(ctx context.Context, id, refreshTokenID string) error
	Terminate(ctx context.Context, id, reason string, at time.Time) error
	TerminateAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error)
	// TerminateExpired sweeps sessions whose expiry elapsed. Returns the
	// number of sessions moved to TERMINATED.
	TerminateExpired(ctx context.Context, at time.Time) (int, error)
}
