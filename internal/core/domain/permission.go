package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CatalogVersion identifies the permission taxonomy revision carried in audit
// records so historical decisions stay interpretable after catalog changes.
const CatalogVersion = "2024-06"

// Permission is a single entry of the closed (resource, action) taxonomy.
// Modules never invent ad hoc strings; unknown values are rejected at the
// boundary by ParsePermission.
type Permission string

const (
	PermCaseRead   Permission = "case:read"
	PermCaseCreate Permission = "case:create"
	PermCaseUpdate Permission = "case:update"
	PermCaseDelete Permission = "case:delete"

	PermDocumentRead     Permission = "document:read"
	PermDocumentGenerate Permission = "document:generate"

	PermBillingRead   Permission = "billing:read"
	PermBillingCreate Permission = "billing:create"

	PermSearchQuery Permission = "search:query"

	PermModerationModerate Permission = "moderation:moderate"

	PermMinutierRead   Permission = "minutier:read"
	PermMinutierManage Permission = "minutier:manage"

	PermReportRead     Permission = "report:read"
	PermReportGenerate Permission = "report:generate"

	PermRoleManage    Permission = "role:manage"
	PermRoleAssign    Permission = "role:assign"
	PermUserManage    Permission = "user:manage"
	PermOrgManage     Permission = "org:manage"
	PermSessionManage Permission = "session:manage"
	PermAuditRead     Permission = "audit:read"
)

// AllPermissions is the complete platform catalog.
var AllPermissions = []Permission{
	PermCaseRead, PermCaseCreate, PermCaseUpdate, PermCaseDelete,
	PermDocumentRead, PermDocumentGenerate,
	PermBillingRead, PermBillingCreate,
	PermSearchQuery,
	PermModerationModerate,
	PermMinutierRead, PermMinutierManage,
	PermReportRead, PermReportGenerate,
	PermRoleManage, PermRoleAssign, PermUserManage, PermOrgManage,
	PermSessionManage, PermAuditRead,
}

var permissionIndex = func() map[Permission]struct{} {
	idx := make(map[Permission]struct{}, len(AllPermissions))
	for _, p := range AllPermissions {
		idx[p] = struct{}{}
	}
	return idx
}()

// ParsePermission validates an incoming string against the catalog.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := permissionIndex[p]; !ok {
		return "", fmt.Errorf("unknown permission %q", raw)
	}
	return p, nil
}

// Resource returns the resource segment of the permission.
func (p Permission) Resource() string {
	if i := strings.IndexByte(string(p), ':'); i > 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Action returns the action segment of the permission.
func (p Permission) Action() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[i+1:]
	}
	return ""
}

// PermissionSet is an unordered set of catalog permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the supplied permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts the permission into the set.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Union merges other into a copy of s.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, len(s)+len(other))
	for p := range s {
		merged[p] = struct{}{}
	}
	for p := range other {
		merged[p] = struct{}{}
	}
	return merged
}

// Intersect keeps only permissions present in both sets.
func (s PermissionSet) Intersect(other PermissionSet) PermissionSet {
	clamped := make(PermissionSet, len(s))
	for p := range s {
		if other.Has(p) {
			clamped[p] = struct{}{}
		}
	}
	return clamped
}

// Contains reports whether s is a superset of other.
func (s PermissionSet) Contains(other PermissionSet) bool {
	for p := range other {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Sorted returns the set as a deterministic slice for responses and audit.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OrganizationCatalog is the subset of the platform catalog an organization
// may grant through custom roles. Platform administration permissions are
// excluded so a custom-role union can never escalate beyond org scope.
var OrganizationCatalog = NewPermissionSet(
	PermCaseRead, PermCaseCreate, PermCaseUpdate, PermCaseDelete,
	PermDocumentRead, PermDocumentGenerate,
	PermBillingRead, PermBillingCreate,
	PermSearchQuery,
	PermModerationModerate,
	PermMinutierRead, PermMinutierManage,
	PermReportRead, PermReportGenerate,
)

// OwnershipRestricted lists permissions whose grant only reaches records
// owned by the caller; platform-admin bypasses the predicate.
var OwnershipRestricted = NewPermissionSet(
	PermReportRead,
	PermDocumentRead,
	PermMinutierRead,
)
