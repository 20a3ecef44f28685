package port

import (
	"context"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// RoleAssignmentRepository stores professional role assignments. Rows are
// never deleted; revocation sets a flag.
type RoleAssignmentRepository interface {
	Create(ctx context.Context, assignment domain.ProfessionalRoleAssignment) error
	GetByID(ctx context.Context, id string) (*domain.ProfessionalRoleAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ProfessionalRoleAssignment, error)
	// ListUsableByUser filters out revoked and expired assignments as of
	// the supplied moment.
	ListUsableByUser(ctx context.Context, userID string, at time.Time) ([]domain.ProfessionalRoleAssignment, error)
	Revoke(ctx context.Context, id, revokedBy string, at time.Time) error
}

// CustomRoleRepository stores organization-scoped custom roles and their
// user grants. Custom roles are soft-disabled only.
type CustomRoleRepository interface {
	Create(ctx context.Context, role domain.CustomRole) error
	Update(ctx context.Context, role domain.CustomRole) error
	Disable(ctx context.Context, roleID string, at time.Time) error
	GetByID(ctx context.Context, roleID string) (*domain.CustomRole, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.CustomRole, error)

	Grant(ctx context.Context, grant domain.CustomRoleGrant) error
	RevokeGrant(ctx context.Context, grantID string, at time.Time) error
	// ListActiveRolesForUser returns non-disabled custom roles the user
	// holds an unrevoked grant for within the organization.
	ListActiveRolesForUser(ctx context.Context, userID, organizationID string) ([]domain.CustomRole, error)
	// ListGranteeIDs returns users holding an unrevoked grant for the role,
	// used to invalidate their cached permissions after a role change.
	ListGranteeIDs(ctx context.Context, roleID string) ([]string, error)
}
