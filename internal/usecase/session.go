package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var (
	// ErrSessionNotActive indicates the session was terminated or expired.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrRoleNotGranted indicates the user holds no usable assignment for the requested profession.
	ErrRoleNotGranted = errors.New("professional role not granted")
)

// SessionService manages session lifecycle and in-place role switching.
type SessionService struct {
	cfg         *config.AppConfig
	sessions    port.SessionRepository
	assignments port.RoleAssignmentRepository
	tokens      *TokenService
	tokenRepo   port.TokenRepository
	versions    port.SubjectVersionStore
	revocations port.SessionRevocationStore
	audit       *AuditRecorder
	logger      *zap.Logger
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	cfg *config.AppConfig,
	sessions port.SessionRepository,
	assignments port.RoleAssignmentRepository,
	tokens *TokenService,
	tokenRepo port.TokenRepository,
	versions port.SubjectVersionStore,
	revocations port.SessionRevocationStore,
	audit *AuditRecorder,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		sessions:    sessions,
		assignments: assignments,
		tokens:      tokens,
		tokenRepo:   tokenRepo,
		versions:    versions,
		revocations: revocations,
		audit:       audit,
		logger:      logger,
	}
}

// List returns every session of the user, terminated ones included, newest
// first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// Get fetches a single session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	return session, nil
}

func (s *SessionService) revocationTTL() time.Duration {
	ttl := s.cfg.Redis.SessionRevocationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return ttl
}

// Terminate moves the session to TERMINATED, revokes its refresh tokens,
// and flags it in the shared revocation store. Terminating an already
// terminated session is a no-op.
func (s *SessionService) Terminate(ctx context.Context, sessionID, reason string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if reason == "" {
		reason = "logout"
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("fetch session: %w", err)
	}
	if session.State == domain.SessionTerminated {
		return nil
	}

	now := time.Now().UTC()

	if err := s.sessions.Terminate(ctx, sessionID, reason, now); err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}

	if _, err := s.tokenRepo.RevokeBySession(ctx, sessionID, now); err != nil {
		s.logger.Error("Failed to revoke tokens for terminated session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	if s.revocations != nil {
		if err := s.revocations.MarkSessionRevoked(ctx, sessionID, reason, s.revocationTTL()); err != nil {
			s.logger.Warn("Failed to flag revoked session",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:      domain.AuditSessionTerminated,
		UserID:    session.UserID,
		SessionID: sessionID,
		At:        now,
		Details:   map[string]any{"reason": reason},
	})

	return nil
}

// TerminateAll ends every active session of the user. Returns the number of
// sessions terminated.
func (s *SessionService) TerminateAll(ctx context.Context, userID, reason string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}
	if reason == "" {
		reason = "logout_all"
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := time.Now().UTC()

	count, err := s.sessions.TerminateAllForUser(ctx, userID, reason, now)
	if err != nil {
		return 0, fmt.Errorf("terminate sessions: %w", err)
	}

	for _, session := range sessions {
		if session.State != domain.SessionActive {
			continue
		}
		if _, err := s.tokenRepo.RevokeBySession(ctx, session.ID, now); err != nil {
			s.logger.Error("Failed to revoke tokens for terminated session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
		if s.revocations != nil {
			if err := s.revocations.MarkSessionRevoked(ctx, session.ID, reason, s.revocationTTL()); err != nil {
				s.logger.Warn("Failed to flag revoked session",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			}
		}
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:    domain.AuditSessionTerminated,
		UserID:  userID,
		At:      now,
		Details: map[string]any{"reason": reason, "count": count},
	})

	return count, nil
}

// SwitchProfession changes the session's active role in place. The user must
// hold a usable assignment for the target profession; the subject version is
// bumped so cached permissions for the old role die immediately, and a fresh
// token pair reflecting the new role is issued.
func (s *SessionService) SwitchProfession(ctx context.Context, sessionID, requested string) (*domain.Session, *domain.TokenPair, error) {
	if sessionID == "" {
		return nil, nil, fmt.Errorf("session id is required")
	}

	profession, err := domain.ParseProfession(requested)
	if err != nil {
		return nil, nil, ErrRoleNotGranted
	}

	now := time.Now().UTC()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, fmt.Errorf("fetch session: %w", err)
	}
	if !session.IsActive(now) {
		return nil, nil, ErrSessionNotActive
	}

	usable, err := s.assignments.ListUsableByUser(ctx, session.UserID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("list usable assignments: %w", err)
	}

	var selected *domain.ProfessionalRoleAssignment
	for i := range usable {
		if usable[i].Profession == profession {
			selected = &usable[i]
			break
		}
	}
	if selected == nil {
		return nil, nil, ErrRoleNotGranted
	}

	previous := session.ActiveProfession

	if err := s.sessions.UpdateActiveProfession(ctx, sessionID, profession); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotActive
		}
		return nil, nil, fmt.Errorf("update active profession: %w", err)
	}

	session.SwitchProfession(profession)
	session.OrganizationID = selected.OrganizationID

	if s.versions != nil {
		if _, err := s.versions.BumpSubjectVersion(ctx, session.UserID); err != nil {
			s.logger.Warn("Failed to bump subject version after role switch",
				zap.String("user_id", logSafeID(session.UserID)),
				zap.Error(err),
			)
		}
	}

	pair, err := s.tokens.ReissueForSession(ctx, *session)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:      domain.AuditRoleSwitched,
		UserID:    session.UserID,
		SessionID: sessionID,
		At:        now,
		Details: map[string]any{
			"from": string(previous),
			"to":   string(profession),
		},
	})

	return session, &pair, nil
}

// Touch records request activity on the session.
func (s *SessionService) Touch(ctx context.Context, sessionID string, ip, userAgent *string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	if err := s.sessions.UpdateLastSeen(ctx, sessionID, time.Now().UTC(), ip, userAgent); err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}

	return nil
}

// SweepExpired moves expired sessions to TERMINATED and deletes refresh
// tokens past their expiry. Intended to run periodically.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	terminated, err := s.sessions.TerminateExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("terminate expired sessions: %w", err)
	}

	deleted, err := s.tokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		return terminated, fmt.Errorf("delete expired tokens: %w", err)
	}

	if terminated > 0 || deleted > 0 {
		s.logger.Info("Expired session sweep complete",
			zap.Int("sessions_terminated", terminated),
			zap.Int("tokens_deleted", deleted),
		)
	}

	return terminated, nil
}
