package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var customRoleColumns = []string{
	"id",
	"organization_id",
	"name",
	"description",
	"permissions",
	"denies",
	"created_by",
	"created_at",
	"updated_at",
	"disabled_at",
}

// CustomRoleRepository implements port.CustomRoleRepository using PostgreSQL.
type CustomRoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCustomRoleRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCustomRoleRepository(exec pgExecutor) *CustomRoleRepository {
	repo := &CustomRoleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CustomRoleRepository) WithTx(tx pgx.Tx) *CustomRoleRepository {
	if tx == nil {
		return r
	}
	return &CustomRoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func permissionsToStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

func stringsToPermissions(values []string) []domain.Permission {
	out := make([]domain.Permission, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Permission(v))
	}
	return out
}

// Create inserts a new custom role definition.
func (r *CustomRoleRepository) Create(ctx context.Context, role domain.CustomRole) error {
	stmt, args, err := r.builder.Insert("iam.custom_roles").
		Columns(customRoleColumns...).
		Values(
			role.ID,
			role.OrganizationID,
			role.Name,
			role.Description,
			permissionsToStrings(role.Permissions),
			permissionsToStrings(role.Denies),
			role.CreatedBy,
			role.CreatedAt,
			role.UpdatedAt,
			role.DisabledAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert custom role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert custom role: %w", err)
	}

	return nil
}

// Update rewrites name, description, and permission sets of a custom role.
func (r *CustomRoleRepository) Update(ctx context.Context, role domain.CustomRole) error {
	stmt, args, err := r.builder.Update("iam.custom_roles").
		Set("name", role.Name).
		Set("description", role.Description).
		Set("permissions", permissionsToStrings(role.Permissions)).
		Set("denies", permissionsToStrings(role.Denies)).
		Set("updated_at", role.UpdatedAt).
		Where(squirrel.Eq{"id": role.ID}).
		Where("disabled_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update custom role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update custom role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Disable soft-deletes the role. Disabled roles stop contributing to
// authorization but keep their audit trail.
func (r *CustomRoleRepository) Disable(ctx context.Context, roleID string, at time.Time) error {
	stmt, args, err := r.builder.Update("iam.custom_roles").
		Set("disabled_at", at).
		Where(squirrel.Eq{"id": roleID}).
		Where("disabled_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build disable custom role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("disable custom role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID retrieves a custom role by identifier.
func (r *CustomRoleRepository) GetByID(ctx context.Context, roleID string) (*domain.CustomRole, error) {
	stmt, args, err := r.builder.
		Select(customRoleColumns...).
		From("iam.custom_roles").
		Where(squirrel.Eq{"id": roleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select custom role sql: %w", err)
	}

	return scanCustomRole(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByOrganization returns every custom role defined by the organization.
func (r *CustomRoleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.CustomRole, error) {
	stmt, args, err := r.builder.
		Select(customRoleColumns...).
		From("iam.custom_roles").
		Where(squirrel.Eq{"organization_id": organizationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list custom roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query custom roles: %w", err)
	}
	defer rows.Close()

	return collectCustomRoles(rows)
}

func scanCustomRole(row pgx.Row) (*domain.CustomRole, error) {
	var (
		role        domain.CustomRole
		permissions []string
		denies      []string
	)

	if err := row.Scan(
		&role.ID,
		&role.OrganizationID,
		&role.Name,
		&role.Description,
		&permissions,
		&denies,
		&role.CreatedBy,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.DisabledAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan custom role: %w", err)
	}

	role.Permissions = stringsToPermissions(permissions)
	role.Denies = stringsToPermissions(denies)

	return &role, nil
}

func collectCustomRoles(rows pgx.Rows) ([]domain.CustomRole, error) {
	roles := make([]domain.CustomRole, 0)
	for rows.Next() {
		role, err := scanCustomRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom roles: %w", err)
	}

	return roles, nil
}

// Grant links a custom role to a user.
func (r *CustomRoleRepository) Grant(ctx context.Context, grant domain.CustomRoleGrant) error {
	stmt, args, err := r.builder.Insert("iam.custom_role_grants").
		Columns("id", "custom_role_id", "user_id", "granted_by", "granted_at", "revoked_at").
		Values(
			grant.ID,
			grant.CustomRoleID,
			grant.UserID,
			grant.GrantedBy,
			grant.GrantedAt,
			grant.RevokedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert custom role grant sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert custom role grant: %w", err)
	}

	return nil
}

// RevokeGrant flags a grant as revoked.
func (r *CustomRoleRepository) RevokeGrant(ctx context.Context, grantID string, at time.Time) error {
	stmt, args, err := r.builder.Update("iam.custom_role_grants").
		Set("revoked_at", at).
		Where(squirrel.Eq{"id": grantID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke custom role grant sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke custom role grant: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActiveRolesForUser joins grants to role definitions, excluding revoked
// grants and disabled roles.
func (r *CustomRoleRepository) ListActiveRolesForUser(ctx context.Context, userID, organizationID string) ([]domain.CustomRole, error) {
	stmt, args, err := r.builder.
		Select(
			"cr.id",
			"cr.organization_id",
			"cr.name",
			"cr.description",
			"cr.permissions",
			"cr.denies",
			"cr.created_by",
			"cr.created_at",
			"cr.updated_at",
			"cr.disabled_at",
		).
		From("iam.custom_roles cr").
		Join("iam.custom_role_grants g ON g.custom_role_id = cr.id").
		Where(squirrel.Eq{"g.user_id": userID}).
		Where(squirrel.Eq{"cr.organization_id": organizationID}).
		Where("g.revoked_at IS NULL").
		Where("cr.disabled_at IS NULL").
		OrderBy("cr.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query active roles: %w", err)
	}
	defer rows.Close()

	return collectCustomRoles(rows)
}

// ListGranteeIDs returns the users currently holding an unrevoked grant for
// the role.
func (r *CustomRoleRepository) ListGranteeIDs(ctx context.Context, roleID string) ([]string, error) {
	stmt, args, err := r.builder.
		Select("user_id").
		From("iam.custom_role_grants").
		Where(squirrel.Eq{"custom_role_id": roleID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grantees sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query grantees: %w", err)
	}
	defer rows.Close()

	userIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan grantee: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grantees: %w", err)
	}

	return userIDs, nil
}

var _ port.CustomRoleRepository = (*CustomRoleRepository)(nil)
