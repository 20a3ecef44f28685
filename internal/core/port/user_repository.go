package port

import (
	"context"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// LockoutPolicy parameterizes the shared failed-login counter. The
// threshold check and counter increment execute as one atomic statement so
// a client disconnect can never leave a half-applied lockout.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
}

// FailedLoginResult reports the counter state after an atomic increment.
type FailedLoginResult struct {
	FailedCount int
	LockedUntil *time.Time
	JustLocked  bool
}

// UserRepository is the durable credential store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// RegisterFailedLogin atomically increments the failed-login counter,
	// restarting the window when the previous one elapsed, and sets
	// locked_until when the policy threshold is crossed.
	RegisterFailedLogin(ctx context.Context, userID string, at time.Time, policy LockoutPolicy) (FailedLoginResult, error)
	// RegisterFailedMFA bumps the bounded MFA failure counter, separate
	// from the password counter.
	RegisterFailedMFA(ctx context.Context, userID string, at time.Time, policy LockoutPolicy) (FailedLoginResult, error)
	// ResetLoginCounters zeroes both counters after a full success.
	ResetLoginCounters(ctx context.Context, userID string, lastLogin time.Time) error
	// ClearLock removes an active lockout ahead of its natural expiry.
	ClearLock(ctx context.Context, userID string) error

	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// StageMFASecret stores an unconfirmed TOTP secret and backup code
	// hashes; mfa_enabled stays false until activation.
	StageMFASecret(ctx context.Context, userID, secret string, backupCodeHashes []string) error
	ActivateMFA(ctx context.Context, userID string) error
	DisableMFA(ctx context.Context, userID string) error
	// ConsumeBackupCode removes the matching hash. Returns false when no
	// unused backup code matches.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)
}
