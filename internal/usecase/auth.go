package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account rejects authentication until the lockout expires.
	ErrAccountLocked = errors.New("account locked")
	// ErrMFARequired indicates the password was correct but a second factor is outstanding.
	ErrMFARequired = errors.New("mfa code required")
	// ErrMFAInvalid indicates the presented TOTP or backup code did not verify.
	ErrMFAInvalid = errors.New("invalid mfa code")
	// ErrMFANotEnabled indicates an MFA operation on an account without MFA.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrMFAAlreadyEnabled indicates enrollment was attempted on an MFA-active account.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMFASetupNotStaged indicates activation without a prior enrollment step.
	ErrMFASetupNotStaged = errors.New("mfa setup not staged")
	// ErrInvalidAccessToken indicates the access token is malformed or failed signature validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token elapsed its validity window.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrSessionRevoked indicates the session behind a still-valid token was terminated.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrNoUsableRole indicates the user holds no usable professional role assignment.
	ErrNoUsableRole = errors.New("no usable professional role")
)

// AuthService coordinates credential verification, lockout, MFA, and access
// token validation.
type AuthService struct {
	cfg         *config.AppConfig
	users       port.UserRepository
	assignments port.RoleAssignmentRepository
	sessions    port.SessionRepository
	tokens      *TokenService
	revocations port.SessionRevocationStore
	jwtManager  *security.JWTManager
	audit       *AuditRecorder
	logger      *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	assignments port.RoleAssignmentRepository,
	sessions port.SessionRepository,
	tokens *TokenService,
	revocations port.SessionRevocationStore,
	jwtManager *security.JWTManager,
	audit *AuditRecorder,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:         cfg,
		users:       users,
		assignments: assignments,
		sessions:    sessions,
		tokens:      tokens,
		revocations: revocations,
		jwtManager:  jwtManager,
		audit:       audit,
		logger:      logger,
	}
}

// LoginInput carries everything one login attempt may present.
type LoginInput struct {
	Email       string
	Password    string
	MFACode     string
	BackupCode  string
	Profession  string
	IP          *string
	UserAgent   *string
	DeviceLabel *string
}

// LoginResult is the outcome of a successful (or MFA-pending) login.
type LoginResult struct {
	MFARequired bool
	User        domain.User
	Session     *domain.Session
	Tokens      *domain.TokenPair
}

func (s *AuthService) loginLockoutPolicy() port.LockoutPolicy {
	return port.LockoutPolicy{
		Threshold: s.cfg.Lockout.MaxFailedLogins,
		Window:    s.cfg.Lockout.Window,
		Duration:  s.cfg.Lockout.Duration,
	}
}

func (s *AuthService) mfaLockoutPolicy() port.LockoutPolicy {
	return port.LockoutPolicy{
		Threshold: s.cfg.Lockout.MaxFailedMFA,
		Window:    s.cfg.Lockout.Window,
		Duration:  s.cfg.Lockout.Duration,
	}
}

func (s *AuthService) totpOptions() security.TOTPOptions {
	return security.TOTPOptions{
		Period: time.Duration(s.cfg.MFA.PeriodSeconds) * time.Second,
		Digits: s.cfg.MFA.Digits,
		Skew:   s.cfg.MFA.Skew,
	}
}

// Login verifies credentials and, when the account has MFA enabled, a second
// factor. Failed attempts feed the per-account lockout counter; a lockout
// rejects further attempts even with the correct password until it expires.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	now := time.Now().UTC()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.registerLoginFailure(ctx, user, now, "wrong_password")
	}

	if user.MFAEnabled {
		if input.MFACode == "" && input.BackupCode == "" {
			// Not a failure. The password was correct; the client is asked
			// for the second factor without touching any counter.
			return &LoginResult{MFARequired: true, User: sanitizeUser(*user)}, nil
		}
		if err := s.verifySecondFactor(ctx, user, input, now); err != nil {
			return nil, err
		}
	}

	if err := s.users.ResetLoginCounters(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("reset login counters: %w", err)
	}

	session, err := s.createSession(ctx, user, input, now)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, *user, *session)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:      domain.AuditLoginSucceeded,
		UserID:    user.ID,
		SessionID: session.ID,
		At:        now,
		Details:   map[string]any{"profession": string(session.ActiveProfession)},
	})

	return &LoginResult{
		User:    sanitizeUser(*user),
		Session: session,
		Tokens:  &pair,
	}, nil
}

func (s *AuthService) registerLoginFailure(ctx context.Context, user *domain.User, now time.Time, cause string) error {
	result, err := s.users.RegisterFailedLogin(ctx, user.ID, now, s.loginLockoutPolicy())
	if err != nil {
		return fmt.Errorf("register failed login: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditLoginFailed,
		UserID: user.ID,
		At:     now,
		Details: map[string]any{
			"cause":        cause,
			"failed_count": result.FailedCount,
		},
	})

	if result.JustLocked {
		s.audit.Record(ctx, domain.AuditEvent{
			Type:    domain.AuditAccountLocked,
			UserID:  user.ID,
			At:      now,
			Details: map[string]any{"locked_until": result.LockedUntil},
		})
	}

	// The crossing failure answers like any other mismatch. ACCOUNT_LOCKED
	// only ever appears on attempts made while the lockout is already open.
	return ErrInvalidCredentials
}

func (s *AuthService) verifySecondFactor(ctx context.Context, user *domain.User, input LoginInput, now time.Time) error {
	verified := false

	switch {
	case input.MFACode != "":
		if user.MFASecret == nil {
			return ErrMFAInvalid
		}
		ok, err := security.VerifyTOTP(*user.MFASecret, input.MFACode, now, s.totpOptions())
		if err != nil {
			return fmt.Errorf("verify totp: %w", err)
		}
		verified = ok
	case input.BackupCode != "":
		normalized := security.NormalizeBackupCode(input.BackupCode)
		consumed, err := s.users.ConsumeBackupCode(ctx, user.ID, security.HashToken(normalized))
		if err != nil {
			return fmt.Errorf("consume backup code: %w", err)
		}
		verified = consumed
	}

	if verified {
		return nil
	}

	result, err := s.users.RegisterFailedMFA(ctx, user.ID, now, s.mfaLockoutPolicy())
	if err != nil {
		return fmt.Errorf("register failed mfa: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditLoginFailed,
		UserID: user.ID,
		At:     now,
		Details: map[string]any{
			"cause":        "wrong_mfa_code",
			"failed_count": result.FailedCount,
		},
	})

	if result.JustLocked {
		s.audit.Record(ctx, domain.AuditEvent{
			Type:    domain.AuditAccountLocked,
			UserID:  user.ID,
			At:      now,
			Details: map[string]any{"locked_until": result.LockedUntil},
		})
	}

	return ErrMFAInvalid
}

func (s *AuthService) createSession(ctx context.Context, user *domain.User, input LoginInput, now time.Time) (*domain.Session, error) {
	usable, err := s.assignments.ListUsableByUser(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("list usable assignments: %w", err)
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableRole
	}

	selected := usable[0]
	if requested := strings.TrimSpace(input.Profession); requested != "" {
		profession, err := domain.ParseProfession(requested)
		if err != nil {
			return nil, ErrNoUsableRole
		}
		found := false
		for _, assignment := range usable {
			if assignment.Profession == profession {
				selected = assignment
				found = true
				break
			}
		}
		if !found {
			return nil, ErrNoUsableRole
		}
	}

	sessionTTL := s.cfg.JWT.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}

	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		ActiveProfession: selected.Profession,
		OrganizationID:   selected.OrganizationID,
		State:            domain.SessionActive,
		IP:               input.IP,
		UserAgent:        input.UserAgent,
		DeviceLabel:      input.DeviceLabel,
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(sessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// ParseAccessToken validates a signed access token and resolves it to a
// principal. The session revocation flag is consulted so a terminated
// session is rejected before the token's natural expiry.
func (s *AuthService) ParseAccessToken(ctx context.Context, raw string) (*domain.Principal, error) {
	claims, err := s.jwtManager.ParseAccessToken(raw, s.cfg.JWT.Issuer, time.Now().UTC())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if s.revocations != nil && claims.SessionID != "" {
		revoked, _, err := s.revocations.IsSessionRevoked(ctx, claims.SessionID)
		if err != nil {
			// Fail closed on the shared store rather than accepting a
			// possibly revoked session.
			return nil, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return nil, ErrSessionRevoked
		}
	}

	profession, err := domain.ParseProfession(claims.ActiveProfession)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	principal := &domain.Principal{
		UserID:     claims.UserID,
		Profession: profession,
		SessionID:  claims.SessionID,
	}
	if claims.OrganizationID != "" {
		orgID := claims.OrganizationID
		principal.OrganizationID = &orgID
	}

	return principal, nil
}

// ChangePassword verifies the current password, enforces the strength
// policy, and rotates the credential. Every other session of the user is
// terminated so stolen tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, keepSessionID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	validator := security.NewPasswordValidatorWithContext(user.Email, user.DisplayName)
	if err := validator.Validate(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	now := time.Now().UTC()
	terminated := s.terminateOtherSessions(ctx, userID, keepSessionID, "password_changed", now)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:    domain.AuditPasswordChanged,
		UserID:  userID,
		At:      now,
		Details: map[string]any{"sessions_terminated": terminated},
	})

	return nil
}

func (s *AuthService) terminateOtherSessions(ctx context.Context, userID, keepSessionID, reason string, now time.Time) int {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list sessions for termination",
			zap.String("user_id", logSafeID(userID)),
			zap.Error(err),
		)
		return 0
	}

	revocationTTL := s.cfg.Redis.SessionRevocationTTL
	if revocationTTL <= 0 {
		revocationTTL = 24 * time.Hour
	}

	terminated := 0
	for _, session := range sessions {
		if session.ID == keepSessionID || session.State != domain.SessionActive {
			continue
		}
		if err := s.sessions.Terminate(ctx, session.ID, reason, now); err != nil {
			s.logger.Error("Failed to terminate session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}
		if s.revocations != nil {
			if err := s.revocations.MarkSessionRevoked(ctx, session.ID, reason, revocationTTL); err != nil {
				s.logger.Warn("Failed to flag revoked session",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			}
		}
		terminated++
	}

	return terminated
}

// UnlockAccount clears an active lockout ahead of its natural expiry and
// zeroes the failure counters.
func (s *AuthService) UnlockAccount(ctx context.Context, userID, unlockedBy string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if err := s.users.ClearLock(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("clear lock: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:    domain.AuditAccountUnlocked,
		UserID:  userID,
		At:      time.Now().UTC(),
		Details: map[string]any{"unlocked_by": unlockedBy},
	})

	return nil
}

// MFASetup is handed to the client once during enrollment. Backup codes are
// shown exactly here; only their hashes persist.
type MFASetup struct {
	Secret          string
	ProvisioningURI string
	BackupCodes     []string
}

// StartMFAEnrollment generates and stages a TOTP secret plus backup codes.
// MFA stays off until the user proves possession with a valid code.
func (s *AuthService) StartMFAEnrollment(ctx context.Context, userID string) (*MFASetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	secret, err := security.GenerateTOTPSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	count := s.cfg.MFA.BackupCodeCount
	if count <= 0 {
		count = 10
	}
	codes, err := security.GenerateBackupCodes(count)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, security.HashToken(security.NormalizeBackupCode(code)))
	}

	if err := s.users.StageMFASecret(ctx, userID, secret, hashes); err != nil {
		return nil, fmt.Errorf("stage mfa secret: %w", err)
	}

	issuer := s.cfg.MFA.Issuer
	if issuer == "" {
		issuer = s.cfg.App.Name
	}

	return &MFASetup{
		Secret:          secret,
		ProvisioningURI: security.ProvisioningURI(issuer, user.Email, secret, s.totpOptions()),
		BackupCodes:     codes,
	}, nil
}

// ConfirmMFAEnrollment activates MFA once the user presents a code generated
// from the staged secret.
func (s *AuthService) ConfirmMFAEnrollment(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if !user.HasStagedMFASecret() {
		return ErrMFASetupNotStaged
	}

	now := time.Now().UTC()
	ok, err := security.VerifyTOTP(*user.MFASecret, code, now, s.totpOptions())
	if err != nil {
		return fmt.Errorf("verify totp: %w", err)
	}
	if !ok {
		return ErrMFAInvalid
	}

	if err := s.users.ActivateMFA(ctx, userID); err != nil {
		return fmt.Errorf("activate mfa: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditMFAEnabled,
		UserID: userID,
		At:     now,
	})

	return nil
}

// DisableMFA removes the second factor after re-verifying the password.
func (s *AuthService) DisableMFA(ctx context.Context, userID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.MFAEnabled {
		return ErrMFANotEnabled
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.users.DisableMFA(ctx, userID); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditMFADisabled,
		UserID: userID,
		At:     time.Now().UTC(),
	})

	return nil
}

func sanitizeUser(user domain.User) domain.User {
	user.PasswordHash = ""
	user.MFASecret = nil
	user.BackupCodeHashes = nil
	return user
}

func logSafeID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
