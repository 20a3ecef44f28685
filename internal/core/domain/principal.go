package domain

// Principal is the authenticated identity a permission check runs against.
type Principal struct {
	UserID         string
	Profession     Profession
	OrganizationID *string
	SessionID      string
}

// ResourceContext carries the attributes an ownership predicate may inspect.
type ResourceContext struct {
	OwnerID string
}

// Decision is the explicit result of a permission evaluation. The engine
// never signals an authorization miss through an error; callers branch on
// Allow.
type Decision struct {
	Allow     bool
	Reason    string
	RuleTrace []string
}

// Decision reasons surfaced to callers and audit.
const (
	DecisionReasonBaseRole        = "base_role_grant"
	DecisionReasonCustomRole      = "custom_role_grant"
	DecisionReasonDenied          = "permission_denied"
	DecisionReasonExplicitDeny    = "explicit_deny"
	DecisionReasonNotOwner        = "ownership_predicate_failed"
	DecisionReasonUnauthenticated = "unauthenticated"
)
