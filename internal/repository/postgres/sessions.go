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

var sessionColumns = []string{
	"id",
	"user_id",
	"active_profession",
	"organization_id",
	"refresh_token_id",
	"state",
	"termination_reason",
	"ip",
	"user_agent",
	"device_label",
	"created_at",
	"last_seen_at",
	"expires_at",
	"terminated_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session aggregate.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	state := session.State
	if state == "" {
		state = domain.SessionActive
	}

	stmt, args, err := r.builder.Insert("iam.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.ActiveProfession,
			session.OrganizationID,
			session.RefreshTokenID,
			state,
			session.TerminationReason,
			session.IP,
			session.UserAgent,
			session.DeviceLabel,
			session.CreatedAt,
			session.LastSeenAt,
			session.ExpiresAt,
			session.TerminatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by identifier.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("iam.sessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	return scanSession(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByUser returns all sessions for a user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("iam.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.ActiveProfession,
		&session.OrganizationID,
		&session.RefreshTokenID,
		&session.State,
		&session.TerminationReason,
		&session.IP,
		&session.UserAgent,
		&session.DeviceLabel,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
		&session.TerminatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}

// UpdateLastSeen refreshes activity metadata for an active session.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time, ip, userAgent *string) error {
	query := r.builder.Update("iam.sessions").
		Set("last_seen_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"state": domain.SessionActive})

	if ip != nil {
		query = query.Set("ip", *ip)
	}
	if userAgent != nil {
		query = query.Set("user_agent", *userAgent)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update last seen sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateActiveProfession rewrites the active role for a still-active session.
func (r *SessionRepository) UpdateActiveProfession(ctx context.Context, id string, profession domain.Profession) error {
	stmt, args, err := r.builder.Update("iam.sessions").
		Set("active_profession", profession).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"state": domain.SessionActive}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update active profession sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update active profession: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetRefreshToken points the session at its currently live refresh token.
func (r *SessionRepository) SetRefreshToken(ctx context.Context, id, refreshTokenID string) error {
	stmt, args, err := r.builder.Update("iam.sessions").
		Set("refresh_token_id", refreshTokenID).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Terminate moves a session to TERMINATED. Terminating an already
// terminated session is a no-op, keeping the first reason authoritative.
func (r *SessionRepository) Terminate(ctx context.Context, id, reason string, at time.Time) error {
	stmt, args, err := r.builder.Update("iam.sessions").
		Set("state", domain.SessionTerminated).
		Set("termination_reason", reason).
		Set("terminated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"state": domain.SessionActive}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build terminate session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}

	return nil
}

// TerminateAllForUser terminates every active session of a user and reports
// how many transitioned.
func (r *SessionRepository) TerminateAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("iam.sessions").
		Set("state", domain.SessionTerminated).
		Set("termination_reason", reason).
		Set("terminated_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"state": domain.SessionActive}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build terminate user sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("terminate user sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// TerminateExpired sweeps sessions whose expiry elapsed.
func (r *SessionRepository) TerminateExpired(ctx context.Context, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("iam.sessions").
		Set("state", domain.SessionTerminated).
		Set("termination_reason", "expired").
		Set("terminated_at", at).
		Where(squirrel.Eq{"state": domain.SessionActive}).
		Where(squirrel.LtOrEq{"expires_at": at}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build terminate expired sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("terminate expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
