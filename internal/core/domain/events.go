package domain

import "time"

// Audit event types published to the audit sink. Delivery is fire-and-forget
// and at-least-once; consumers deduplicate on EventID.
const (
	AuditLoginSucceeded     = "iam.login.succeeded"
	AuditLoginFailed        = "iam.login.failed"
	AuditAccountLocked      = "iam.account.locked"
	AuditAccountUnlocked    = "iam.account.unlocked"
	AuditMFAEnabled         = "iam.mfa.enabled"
	AuditMFADisabled        = "iam.mfa.disabled"
	AuditTokenRotated       = "iam.token.rotated"
	AuditTokenReuseDetected = "iam.token.reuse_detected"
	AuditSessionTerminated  = "iam.session.terminated"
	AuditRoleSwitched       = "iam.session.role_switched"
	AuditAssignmentGranted  = "iam.role.assignment_granted"
	AuditAssignmentRevoked  = "iam.role.assignment_revoked"
	AuditCustomRoleCreated  = "iam.role.custom_created"
	AuditCustomRoleUpdated  = "iam.role.custom_updated"
	AuditCustomRoleDisabled = "iam.role.custom_disabled"
	AuditPasswordChanged    = "iam.password.changed"
	AuditPermissionDecision = "iam.permission.decision"
)

// AuditEvent is the envelope payload recorded for every security-relevant
// decision.
type AuditEvent struct {
	EventID   string
	Type      string
	UserID    string
	SessionID string
	At        time.Time
	Details   map[string]any
}

// PermissionDecisionRecord snapshots one engine evaluation for audit.
type PermissionDecisionRecord struct {
	EventID        string
	UserID         string
	Profession     Profession
	OrganizationID *string
	Resource       string
	Action         string
	Outcome        bool
	Reason         string
	RuleTrace      []string
	CatalogVersion string
	At             time.Time
}
