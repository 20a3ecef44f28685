package port

import (
	"context"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// TokenRepository persists refresh token records (hashes only).
type TokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Consume atomically sets used_at when it is still NULL. The returned
	// bool reports whether this caller won the rotation race; a false
	// result on a live token is the replay signal.
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	// RevokeBySession invalidates every token descended from the session.
	RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
