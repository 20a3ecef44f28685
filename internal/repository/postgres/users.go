package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var userColumns = []string{
	"id",
	"email",
	"display_name",
	"password_hash",
	"mfa_enabled",
	"mfa_secret",
	"backup_code_hashes",
	"failed_login_count",
	"failed_mfa_count",
	"failed_window_at",
	"locked_until",
	"created_at",
	"last_login_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("iam.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("iam.users").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user           domain.User
		mfaSecret      sql.NullString
		backupCodes    []string
		failedWindowAt *time.Time
		lockedUntil    *time.Time
		lastLoginAt    *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.MFAEnabled,
		&mfaSecret,
		&backupCodes,
		&user.FailedLoginCount,
		&user.FailedMFACount,
		&failedWindowAt,
		&lockedUntil,
		&user.CreatedAt,
		&lastLoginAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if mfaSecret.Valid {
		val := mfaSecret.String
		user.MFASecret = &val
	}
	user.BackupCodeHashes = backupCodes
	user.FailedWindowAt = failedWindowAt
	user.LockedUntil = lockedUntil
	user.LastLoginAt = lastLoginAt

	return &user, nil
}

// failedCounterSQL increments one failure counter, restarting the window
// when the previous one elapsed, and sets locked_until in the same statement
// when the threshold is crossed. Running this as a single UPDATE keeps
// concurrent failures from both observing the pre-increment count.
const failedCounterSQL = `
	UPDATE iam.users
	   SET %[1]s = CASE
	   		WHEN failed_window_at IS NULL OR failed_window_at <= $2 THEN 1
	   		ELSE %[1]s + 1
	   	END,
	       failed_window_at = CASE
	   		WHEN failed_window_at IS NULL OR failed_window_at <= $2 THEN $3
	   		ELSE failed_window_at
	   	END,
	       locked_until = CASE
	   		WHEN (CASE
	   			WHEN failed_window_at IS NULL OR failed_window_at <= $2 THEN 1
	   			ELSE %[1]s + 1
	   		END) >= $4 THEN $5
	   		ELSE locked_until
	   	END
	 WHERE id = $1
	 RETURNING %[1]s, locked_until
`

// RegisterFailedLogin applies one failed password attempt under the policy.
func (r *UserRepository) RegisterFailedLogin(ctx context.Context, userID string, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	return r.registerFailure(ctx, "failed_login_count", userID, at, policy)
}

// RegisterFailedMFA applies one failed TOTP or backup code attempt.
func (r *UserRepository) RegisterFailedMFA(ctx context.Context, userID string, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	return r.registerFailure(ctx, "failed_mfa_count", userID, at, policy)
}

func (r *UserRepository) registerFailure(ctx context.Context, column, userID string, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	stmt := fmt.Sprintf(failedCounterSQL, column)

	windowCutoff := at.Add(-policy.Window)
	lockUntil := at.Add(policy.Duration)

	var result port.FailedLoginResult
	row := r.exec.QueryRow(ctx, stmt, userID, windowCutoff, at, policy.Threshold, lockUntil)
	if err := row.Scan(&result.FailedCount, &result.LockedUntil); err != nil {
		if err == pgx.ErrNoRows {
			return port.FailedLoginResult{}, repository.ErrNotFound
		}
		return port.FailedLoginResult{}, fmt.Errorf("register failed attempt: %w", err)
	}

	result.JustLocked = result.FailedCount >= policy.Threshold &&
		result.LockedUntil != nil && result.LockedUntil.Equal(lockUntil)

	return result, nil
}

// ResetLoginCounters zeroes both failure counters after a fully successful login.
func (r *UserRepository) ResetLoginCounters(ctx context.Context, userID string, lastLogin time.Time) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("failed_login_count", 0).
		Set("failed_mfa_count", 0).
		Set("failed_window_at", nil).
		Set("last_login_at", lastLogin).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset login counters sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("reset login counters: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearLock lifts an active lockout ahead of its natural expiry.
func (r *UserRepository) ClearLock(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("locked_until", nil).
		Set("failed_login_count", 0).
		Set("failed_mfa_count", 0).
		Set("failed_window_at", nil).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear lock sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear lock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("password_hash", passwordHash).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// StageMFASecret stores an unconfirmed TOTP secret and backup code hashes.
func (r *UserRepository) StageMFASecret(ctx context.Context, userID, secret string, backupCodeHashes []string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("mfa_secret", secret).
		Set("backup_code_hashes", backupCodeHashes).
		Set("mfa_enabled", false).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stage mfa secret sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("stage mfa secret: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ActivateMFA flips mfa_enabled once a staged secret is confirmed.
func (r *UserRepository) ActivateMFA(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("mfa_enabled", true).
		Where(squirrel.Eq{"id": userID}).
		Where("mfa_secret IS NOT NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build activate mfa sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("activate mfa: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DisableMFA clears the secret and remaining backup codes.
func (r *UserRepository) DisableMFA(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("mfa_enabled", false).
		Set("mfa_secret", nil).
		Set("backup_code_hashes", nil).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build disable mfa sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ConsumeBackupCode removes the matching hash in one statement, so the same
// code presented twice concurrently consumes exactly once.
func (r *UserRepository) ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error) {
	stmt := `
		UPDATE iam.users
		   SET backup_code_hashes = array_remove(backup_code_hashes, $2)
		 WHERE id = $1
		   AND $2 = ANY(backup_code_hashes)
	`

	ct, err := r.exec.Exec(ctx, stmt, userID, codeHash)
	if err != nil {
		return false, fmt.Errorf("consume backup code: %w", err)
	}

	return ct.RowsAffected() == 1, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
