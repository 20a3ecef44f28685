package port

import (
	"context"
	"time"
)

// SubjectVersionStore tracks a monotonically increasing version per user.
// Every role switch, assignment change, or custom-role update bumps the
// version, making cached effective-permission sets for the old version
// unreachable on all nodes immediately rather than after cache TTL.
type SubjectVersionStore interface {
	GetSubjectVersion(ctx context.Context, userID string) (int64, error)
	BumpSubjectVersion(ctx context.Context, userID string) (int64, error)
}

// SessionRevocationStore flags terminated sessions for near-real-time
// middleware checks ahead of access token expiry.
type SessionRevocationStore interface {
	MarkSessionRevoked(ctx context.Context, sessionID, reason string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, string, error)
}
