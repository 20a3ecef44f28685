package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
)

// EffectivePermissions is one resolved authorization snapshot: the union of
// base and custom grants, plus explicit denies, tied to the subject version
// it was computed at.
type EffectivePermissions struct {
	Grants  domain.PermissionSet
	Denies  domain.PermissionSet
	Version int64
}

// PermissionEngine evaluates permission checks server side on every request.
// Resolved sets are cached in-process with a short TTL; the subject version
// in the cache key makes entries for a user unreachable the moment any of
// their role grants change.
type PermissionEngine struct {
	assignments port.RoleAssignmentRepository
	customRoles port.CustomRoleRepository
	versions    port.SubjectVersionStore
	cache       *expirable.LRU[string, EffectivePermissions]
	group       singleflight.Group
	audit       *AuditRecorder
	logger      *zap.Logger
}

// NewPermissionEngine constructs the engine with a bounded decision cache.
func NewPermissionEngine(
	cacheCfg config.RBACCacheSettings,
	assignments port.RoleAssignmentRepository,
	customRoles port.CustomRoleRepository,
	versions port.SubjectVersionStore,
	audit *AuditRecorder,
	logger *zap.Logger,
) *PermissionEngine {
	size := cacheCfg.Size
	if size <= 0 {
		size = 4096
	}
	ttl := cacheCfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &PermissionEngine{
		assignments: assignments,
		customRoles: customRoles,
		versions:    versions,
		cache:       expirable.NewLRU[string, EffectivePermissions](size, nil, ttl),
		audit:       audit,
		logger:      logger,
	}
}

// Resolve returns the effective permission sets for the principal's active
// profession and organization context.
func (e *PermissionEngine) Resolve(ctx context.Context, principal domain.Principal) (EffectivePermissions, error) {
	if principal.UserID == "" {
		return EffectivePermissions{}, fmt.Errorf("principal user id is required")
	}

	version := int64(0)
	cacheable := e.versions != nil
	if cacheable {
		v, err := e.versions.GetSubjectVersion(ctx, principal.UserID)
		if err != nil {
			// Losing the version store only loses the cache; fall back to
			// an uncached computation rather than failing the check.
			e.logger.Warn("Failed to read subject version, bypassing cache",
				zap.String("user_id", logSafeID(principal.UserID)),
				zap.Error(err),
			)
			cacheable = false
		} else {
			version = v
		}
	}

	orgKey := ""
	if principal.OrganizationID != nil {
		orgKey = *principal.OrganizationID
	}
	key := fmt.Sprintf("%s|%s|%s|%d", principal.UserID, principal.Profession, orgKey, version)

	if cacheable {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	result, err, _ := e.group.Do(key, func() (any, error) {
		resolved, err := e.compute(ctx, principal)
		if err != nil {
			return EffectivePermissions{}, err
		}
		resolved.Version = version
		if cacheable {
			e.cache.Add(key, resolved)
		}
		return resolved, nil
	})
	if err != nil {
		return EffectivePermissions{}, err
	}

	return result.(EffectivePermissions), nil
}

func (e *PermissionEngine) compute(ctx context.Context, principal domain.Principal) (EffectivePermissions, error) {
	now := time.Now().UTC()

	usable, err := e.assignments.ListUsableByUser(ctx, principal.UserID, now)
	if err != nil {
		return EffectivePermissions{}, fmt.Errorf("list usable assignments: %w", err)
	}

	holdsActiveRole := false
	for _, assignment := range usable {
		if assignment.Profession == principal.Profession {
			holdsActiveRole = true
			break
		}
	}
	if !holdsActiveRole {
		// The assignment behind the session's active role was revoked or
		// expired. Everything is denied until the client switches role.
		return EffectivePermissions{Grants: domain.PermissionSet{}, Denies: domain.PermissionSet{}}, nil
	}

	grants := domain.BasePermissions(principal.Profession)
	denies := domain.PermissionSet{}

	if principal.OrganizationID != nil {
		roles, err := e.customRoles.ListActiveRolesForUser(ctx, principal.UserID, *principal.OrganizationID)
		if err != nil {
			return EffectivePermissions{}, fmt.Errorf("list custom roles: %w", err)
		}
		for _, role := range roles {
			// Clamp at evaluation time as well as at creation, so a
			// tampered row can never grant beyond the organization catalog.
			grants = grants.Union(role.PermissionSet().Intersect(domain.OrganizationCatalog))
			denies = denies.Union(role.DenySet())
		}
	}

	return EffectivePermissions{Grants: grants, Denies: denies}, nil
}

// Check evaluates one permission for the principal. Authorization misses are
// expressed in the returned Decision, never as an error; errors are reserved
// for infrastructure failures.
func (e *PermissionEngine) Check(ctx context.Context, principal domain.Principal, perm domain.Permission, resource *domain.ResourceContext) (domain.Decision, error) {
	if principal.UserID == "" || principal.Profession == "" {
		return e.finish(ctx, principal, perm, domain.Decision{
			Allow:  false,
			Reason: domain.DecisionReasonUnauthenticated,
		}), nil
	}

	effective, err := e.Resolve(ctx, principal)
	if err != nil {
		return domain.Decision{}, err
	}

	trace := []string{fmt.Sprintf("role:%s", principal.Profession)}

	if effective.Denies.Has(perm) {
		trace = append(trace, fmt.Sprintf("deny:%s", perm))
		return e.finish(ctx, principal, perm, domain.Decision{
			Allow:     false,
			Reason:    domain.DecisionReasonExplicitDeny,
			RuleTrace: trace,
		}), nil
	}

	if !effective.Grants.Has(perm) {
		return e.finish(ctx, principal, perm, domain.Decision{
			Allow:     false,
			Reason:    domain.DecisionReasonDenied,
			RuleTrace: trace,
		}), nil
	}

	reason := domain.DecisionReasonCustomRole
	if domain.BasePermissions(principal.Profession).Has(perm) {
		reason = domain.DecisionReasonBaseRole
		trace = append(trace, fmt.Sprintf("base:%s", perm))
	} else {
		trace = append(trace, fmt.Sprintf("custom:%s", perm))
	}

	if domain.OwnershipRestricted.Has(perm) && !principal.Profession.IsAdmin() {
		trace = append(trace, "ownership:required")
		if resource == nil || resource.OwnerID == "" || resource.OwnerID != principal.UserID {
			return e.finish(ctx, principal, perm, domain.Decision{
				Allow:     false,
				Reason:    domain.DecisionReasonNotOwner,
				RuleTrace: trace,
			}), nil
		}
		trace = append(trace, "ownership:owner")
	}

	return e.finish(ctx, principal, perm, domain.Decision{
		Allow:     true,
		Reason:    reason,
		RuleTrace: trace,
	}), nil
}

func (e *PermissionEngine) finish(ctx context.Context, principal domain.Principal, perm domain.Permission, decision domain.Decision) domain.Decision {
	e.audit.RecordDecision(ctx, domain.PermissionDecisionRecord{
		UserID:         principal.UserID,
		Profession:     principal.Profession,
		OrganizationID: principal.OrganizationID,
		Resource:       perm.Resource(),
		Action:         perm.Action(),
		Outcome:        decision.Allow,
		Reason:         decision.Reason,
		RuleTrace:      decision.RuleTrace,
		CatalogVersion: domain.CatalogVersion,
	})

	return decision
}

// ListEffective returns the sorted grants and denies for a principal,
// backing the introspection endpoint.
func (e *PermissionEngine) ListEffective(ctx context.Context, principal domain.Principal) ([]domain.Permission, []domain.Permission, error) {
	effective, err := e.Resolve(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	return effective.Grants.Sorted(), effective.Denies.Sorted(), nil
}
