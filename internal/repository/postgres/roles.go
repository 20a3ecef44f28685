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

var assignmentColumns = []string{
	"id",
	"user_id",
	"profession",
	"organization_id",
	"granted_by",
	"granted_at",
	"expires_at",
	"revoked_at",
	"revoked_by",
}

// RoleAssignmentRepository implements port.RoleAssignmentRepository using PostgreSQL.
type RoleAssignmentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleAssignmentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRoleAssignmentRepository(exec pgExecutor) *RoleAssignmentRepository {
	repo := &RoleAssignmentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *RoleAssignmentRepository) WithTx(tx pgx.Tx) *RoleAssignmentRepository {
	if tx == nil {
		return r
	}
	return &RoleAssignmentRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new professional role assignment.
func (r *RoleAssignmentRepository) Create(ctx context.Context, assignment domain.ProfessionalRoleAssignment) error {
	stmt, args, err := r.builder.Insert("iam.role_assignments").
		Columns(assignmentColumns...).
		Values(
			assignment.ID,
			assignment.UserID,
			assignment.Profession,
			assignment.OrganizationID,
			assignment.GrantedBy,
			assignment.GrantedAt,
			assignment.ExpiresAt,
			assignment.RevokedAt,
			assignment.RevokedBy,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert assignment sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return nil
}

// GetByID retrieves an assignment by identifier.
func (r *RoleAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.ProfessionalRoleAssignment, error) {
	stmt, args, err := r.builder.
		Select(assignmentColumns...).
		From("iam.role_assignments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select assignment sql: %w", err)
	}

	return scanAssignment(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByUser returns every assignment for a user, including revoked and
// expired rows, for administrative views.
func (r *RoleAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.ProfessionalRoleAssignment, error) {
	query := r.builder.
		Select(assignmentColumns...).
		From("iam.role_assignments").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("granted_at ASC")

	return r.listAssignments(ctx, query)
}

// ListUsableByUser filters out revoked and expired assignments as of the
// supplied moment.
func (r *RoleAssignmentRepository) ListUsableByUser(ctx context.Context, userID string, at time.Time) ([]domain.ProfessionalRoleAssignment, error) {
	query := r.builder.
		Select(assignmentColumns...).
		From("iam.role_assignments").
		Where(squirrel.Eq{"user_id": userID}).
		Where("revoked_at IS NULL").
		Where(squirrel.Or{
			squirrel.Eq{"expires_at": nil},
			squirrel.Gt{"expires_at": at},
		}).
		OrderBy("granted_at ASC")

	return r.listAssignments(ctx, query)
}

func (r *RoleAssignmentRepository) listAssignments(ctx context.Context, query squirrel.SelectBuilder) ([]domain.ProfessionalRoleAssignment, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list assignments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.ProfessionalRoleAssignment, 0)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return assignments, nil
}

func scanAssignment(row pgx.Row) (*domain.ProfessionalRoleAssignment, error) {
	var assignment domain.ProfessionalRoleAssignment

	if err := row.Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.Profession,
		&assignment.OrganizationID,
		&assignment.GrantedBy,
		&assignment.GrantedAt,
		&assignment.ExpiresAt,
		&assignment.RevokedAt,
		&assignment.RevokedBy,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}

	return &assignment, nil
}

// Revoke flags the assignment. Revoking twice is a no-op so the original
// revocation metadata survives.
func (r *RoleAssignmentRepository) Revoke(ctx context.Context, id, revokedBy string, at time.Time) error {
	stmt, args, err := r.builder.Update("iam.role_assignments").
		Set("revoked_at", at).
		Set("revoked_by", revokedBy).
		Where(squirrel.Eq{"id": id}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke assignment sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke assignment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.RoleAssignmentRepository = (*RoleAssignmentRepository)(nil)
