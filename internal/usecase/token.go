package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var (
	// ErrInvalidRefreshToken indicates the presented refresh token does not exist or was revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the presented refresh token elapsed its validity window.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrTokenReuseDetected indicates an already-rotated refresh token was presented again.
	// The whole token chain and its session are revoked as a consequence.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)

const refreshTokenBytes = 32

// TokenService issues and rotates token pairs. Refresh tokens are opaque
// single-use secrets stored as hashes; access tokens are short-lived RS256
// JWTs carrying the session's active profession.
type TokenService struct {
	cfg         *config.AppConfig
	users       port.UserRepository
	sessions    port.SessionRepository
	tokens      port.TokenRepository
	revocations port.SessionRevocationStore
	jwtManager  *security.JWTManager
	tokenGen    *security.TokenGenerator
	audit       *AuditRecorder
	logger      *zap.Logger
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.TokenRepository,
	revocations port.SessionRevocationStore,
	jwtManager *security.JWTManager,
	tokenGen *security.TokenGenerator,
	audit *AuditRecorder,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		cfg:         cfg,
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		revocations: revocations,
		jwtManager:  jwtManager,
		tokenGen:    tokenGen,
		audit:       audit,
		logger:      logger,
	}
}

// IssuePair mints an access token and a fresh refresh token for the session.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User, session domain.Session) (domain.TokenPair, error) {
	return s.issuePair(ctx, user, session, nil)
}

func (s *TokenService) issuePair(ctx context.Context, user domain.User, session domain.Session, rotatedFrom *string) (domain.TokenPair, error) {
	if user.ID == "" {
		return domain.TokenPair{}, fmt.Errorf("user id is required")
	}
	if session.ID == "" {
		return domain.TokenPair{}, fmt.Errorf("session id is required")
	}

	now := time.Now().UTC()

	accessTTL := s.cfg.JWT.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}

	orgID := ""
	if session.OrganizationID != nil {
		orgID = *session.OrganizationID
	}

	claims, err := security.NewAccessTokenClaims(security.AccessTokenOptions{
		UserID:           user.ID,
		SessionID:        session.ID,
		ActiveProfession: string(session.ActiveProfession),
		OrganizationID:   orgID,
		Issuer:           s.cfg.JWT.Issuer,
		Audience:         []string{s.cfg.App.Name},
		TTL:              accessTTL,
		IssuedAt:         now,
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("build access token claims: %w", err)
	}

	accessToken, err := s.jwtManager.SignAccessToken(s.tokenGen.GetKID(), claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	raw, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshTTL := s.cfg.JWT.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	record := domain.RefreshToken{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserID:      user.ID,
		TokenHash:   security.HashToken(raw),
		RotatedFrom: rotatedFrom,
		CreatedAt:   now,
		ExpiresAt:   now.Add(refreshTTL),
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	if err := s.sessions.SetRefreshToken(ctx, session.ID, record.ID); err != nil {
		return domain.TokenPair{}, fmt.Errorf("link refresh token to session: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

// Rotate exchanges a refresh token for a new pair. Each refresh token is
// single-use; presenting a consumed token revokes the whole chain and
// terminates the session it belongs to.
func (s *TokenService) Rotate(ctx context.Context, rawRefresh string) (domain.TokenPair, *domain.Session, error) {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return domain.TokenPair{}, nil, fmt.Errorf("refresh token is required")
	}

	now := time.Now().UTC()

	record, err := s.tokens.GetByHash(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, nil, ErrInvalidRefreshToken
		}
		return domain.TokenPair{}, nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if record.IsRevoked() {
		return domain.TokenPair{}, nil, ErrInvalidRefreshToken
	}
	if record.IsConsumed() {
		s.handleReuse(ctx, record, now)
		return domain.TokenPair{}, nil, ErrTokenReuseDetected
	}
	if record.IsExpired(now) {
		return domain.TokenPair{}, nil, ErrExpiredRefreshToken
	}

	won, err := s.tokens.Consume(ctx, record.ID, now)
	if err != nil {
		return domain.TokenPair{}, nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if !won {
		// A concurrent rotation consumed the token first. Same replay
		// signal as presenting an already-used token.
		s.handleReuse(ctx, record, now)
		return domain.TokenPair{}, nil, ErrTokenReuseDetected
	}

	session, err := s.sessions.Get(ctx, record.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, nil, ErrInvalidRefreshToken
		}
		return domain.TokenPair{}, nil, fmt.Errorf("fetch session: %w", err)
	}
	if !session.IsActive(now) {
		return domain.TokenPair{}, nil, ErrSessionNotActive
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, nil, ErrInvalidRefreshToken
		}
		return domain.TokenPair{}, nil, fmt.Errorf("lookup user: %w", err)
	}

	pair, err := s.issuePair(ctx, *user, *session, &record.ID)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:      domain.AuditTokenRotated,
		UserID:    record.UserID,
		SessionID: record.SessionID,
		At:        now,
		Details:   map[string]any{"rotated_from": record.ID},
	})

	return pair, session, nil
}

// ReissueForSession revokes the session's outstanding refresh tokens and
// issues a fresh pair reflecting the session's current active profession.
func (s *TokenService) ReissueForSession(ctx context.Context, session domain.Session) (domain.TokenPair, error) {
	if session.ID == "" {
		return domain.TokenPair{}, fmt.Errorf("session id is required")
	}

	now := time.Now().UTC()
	if _, err := s.tokens.RevokeBySession(ctx, session.ID, now); err != nil {
		return domain.TokenPair{}, fmt.Errorf("revoke session tokens: %w", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	return s.issuePair(ctx, *user, session, nil)
}

// handleReuse revokes every descendant of the compromised chain and
// terminates the session. Follow-up failures are logged, not surfaced; the
// caller already returns ErrTokenReuseDetected.
func (s *TokenService) handleReuse(ctx context.Context, record *domain.RefreshToken, now time.Time) {
	revoked, err := s.tokens.RevokeBySession(ctx, record.SessionID, now)
	if err != nil {
		s.logger.Error("Failed to revoke token chain after reuse",
			zap.String("session_id", record.SessionID),
			zap.Error(err),
		)
	}

	if err := s.sessions.Terminate(ctx, record.SessionID, "token_reuse", now); err != nil {
		s.logger.Error("Failed to terminate session after token reuse",
			zap.String("session_id", record.SessionID),
			zap.Error(err),
		)
	}

	if s.revocations != nil {
		ttl := s.cfg.Redis.SessionRevocationTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		if err := s.revocations.MarkSessionRevoked(ctx, record.SessionID, "token_reuse", ttl); err != nil {
			s.logger.Error("Failed to flag revoked session after token reuse",
				zap.String("session_id", record.SessionID),
				zap.Error(err),
			)
		}
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:      domain.AuditTokenReuseDetected,
		UserID:    record.UserID,
		SessionID: record.SessionID,
		At:        now,
		Details: map[string]any{
			"token_id":       record.ID,
			"tokens_revoked": revoked,
		},
	})
}
