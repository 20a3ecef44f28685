package domain

import "time"

// RefreshToken is the persisted half of an opaque refresh secret. Only the
// SHA-256 hash is stored; rotation is single-use via the UsedAt flag.
type RefreshToken struct {
	ID          string
	SessionID   string
	UserID      string
	TokenHash   string
	RotatedFrom *string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	RevokedAt   *time.Time
}

// IsExpired reports whether the token elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsRevoked reports whether the token was explicitly revoked.
func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsConsumed reports whether this exact token was already rotated away.
// Presenting a consumed token is the replay signal that revokes the chain.
func (t RefreshToken) IsConsumed() bool {
	return t.UsedAt != nil
}

// IsActive returns true when the token can still be presented for rotation.
func (t RefreshToken) IsActive(at time.Time) bool {
	return !t.IsRevoked() && !t.IsConsumed() && !t.IsExpired(at)
}

// MarkUsed records the rotation moment. Returns true if the value changed.
func (t *RefreshToken) MarkUsed(at time.Time) bool {
	if t.UsedAt != nil {
		return false
	}
	ts := at
	t.UsedAt = &ts
	return true
}

// Revoke marks the token as revoked. Returns true on state transition.
func (t *RefreshToken) Revoke(at time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	ts := at
	t.RevokedAt = &ts
	return true
}

// TokenPair bundles the signed access token with the opaque refresh secret
// handed to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}
