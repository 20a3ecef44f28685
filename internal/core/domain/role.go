package domain

import "time"

// ProfessionalRoleAssignment grants a user one Profession, optionally scoped
// to an organization. Assignments are never hard-deleted; revocation sets
// RevokedAt so historical audit records keep their meaning.
type ProfessionalRoleAssignment struct {
	ID             string
	UserID         string
	Profession     Profession
	OrganizationID *string
	GrantedBy      string
	GrantedAt      time.Time
	ExpiresAt      *time.Time
	RevokedAt      *time.Time
	RevokedBy      *string
}

// IsUsable reports whether the assignment can authorize or be switched into
// at the supplied moment.
func (a ProfessionalRoleAssignment) IsUsable(at time.Time) bool {
	if a.RevokedAt != nil {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(at) {
		return false
	}
	return true
}

// Revoke flags the assignment. Returns true when the state changed.
func (a *ProfessionalRoleAssignment) Revoke(at time.Time, by string) bool {
	if a.RevokedAt != nil {
		return false
	}
	ts := at
	a.RevokedAt = &ts
	a.RevokedBy = &by
	return true
}

// CustomRole is an organization-scoped named permission bundle. The stored
// permission set is validated at creation to be a subset of the organization
// catalog; evaluation clamps again so a tampered row cannot escalate.
// Custom roles are soft-disabled only, never hard-deleted.
type CustomRole struct {
	ID             string
	OrganizationID string
	Name           string
	Description    *string
	Permissions    []Permission
	Denies         []Permission
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DisabledAt     *time.Time
}

// IsDisabled reports whether the role has been soft-deleted.
func (r CustomRole) IsDisabled() bool {
	return r.DisabledAt != nil
}

// PermissionSet returns the stored grants as a set.
func (r CustomRole) PermissionSet() PermissionSet {
	return NewPermissionSet(r.Permissions...)
}

// DenySet returns the stored negative grants as a set.
func (r CustomRole) DenySet() PermissionSet {
	return NewPermissionSet(r.Denies...)
}

// CustomRoleGrant links a custom role to a user.
type CustomRoleGrant struct {
	ID           string
	CustomRoleID string
	UserID       string
	GrantedBy    string
	GrantedAt    time.Time
	RevokedAt    *time.Time
}

// IsUsable reports whether the grant still contributes to authorization.
func (g CustomRoleGrant) IsUsable() bool {
	return g.RevokedAt == nil
}
