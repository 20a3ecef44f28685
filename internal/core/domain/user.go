package domain

import "time"

// User mirrors the persisted representation in the users table. MFA secret
// and backup code hashes never leave the credential boundary; response
// mapping strips them before serialization.
type User struct {
	ID               string
	Email            string
	DisplayName      string
	PasswordHash     string
	MFAEnabled       bool
	MFASecret        *string
	BackupCodeHashes []string
	FailedLoginCount int
	FailedMFACount   int
	FailedWindowAt   *time.Time
	LockedUntil      *time.Time
	CreatedAt        time.Time
	LastLoginAt      *time.Time
}

// IsLocked reports whether the lockout window is still open at the supplied
// moment. A locked account rejects authentication regardless of credential
// correctness.
func (u User) IsLocked(at time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(at)
}

// HasStagedMFASecret reports whether MFA enrollment started but was never
// confirmed with a valid code.
func (u User) HasStagedMFASecret() bool {
	return !u.MFAEnabled && u.MFASecret != nil && *u.MFASecret != ""
}
