package usecase

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
)

const testKID = "test-key"

type testKeyProvider struct {
	key *rsa.PrivateKey
}

func (p *testKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) {
	return p.key, nil
}

func (p *testKeyProvider) GetVerificationKey(_ string) (*rsa.PublicKey, error) {
	return &p.key.PublicKey, nil
}

func (p *testKeyProvider) ListVerificationKeys() map[string]*rsa.PublicKey {
	return map[string]*rsa.PublicKey{testKID: &p.key.PublicKey}
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func newTestKeyProvider(t *testing.T) *testKeyProvider {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		testKey = key
	})
	return &testKeyProvider{key: testKey}
}

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "juristdz-iam", Env: "test"},
		JWT: config.JWTSettings{
			Issuer:          "juristdz-iam",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			SessionTTL:      30 * 24 * time.Hour,
		},
		Redis: config.RedisSettings{SessionRevocationTTL: 24 * time.Hour},
		Lockout: config.LockoutSettings{
			MaxFailedLogins: 5,
			Window:          time.Minute,
			Duration:        15 * time.Minute,
			MaxFailedMFA:    5,
		},
		MFA: config.MFASettings{
			Issuer:          "JuristDZ",
			PeriodSeconds:   30,
			Digits:          6,
			Skew:            1,
			BackupCodeCount: 10,
		},
		RBACCache: config.RBACCacheSettings{TTL: 30 * time.Second, Size: 128},
		Audit:     config.AuditSettings{AllowSampleRate: 1.0},
	}
}

type fixture struct {
	cfg         *config.AppConfig
	users       *stubUserRepo
	assignments *stubAssignmentRepo
	sessions    *stubSessionRepo
	tokenRepo   *stubTokenRepo
	customRoles *stubCustomRoleRepo
	versions    *stubSubjectVersions
	revocations *stubSessionRevocations
	sink        *stubAuditSink

	tokenSvc   *TokenService
	auth       *AuthService
	sessionSvc *SessionService
	engine     *PermissionEngine
	roles      *RoleService
}

func newFixture(t *testing.T, users ...*domain.User) *fixture {
	t.Helper()

	cfg := newTestConfig()
	logger := zaptest.NewLogger(t)

	provider := newTestKeyProvider(t)
	jwtManager := security.NewJWTManager(provider)
	tokenGen, err := security.NewTokenGenerator(provider, testKID)
	if err != nil {
		t.Fatalf("create token generator: %v", err)
	}

	f := &fixture{
		cfg:         cfg,
		users:       newStubUserRepo(users...),
		assignments: &stubAssignmentRepo{},
		sessions:    newStubSessionRepo(),
		tokenRepo:   newStubTokenRepo(),
		customRoles: newStubCustomRoleRepo(),
		versions:    newStubSubjectVersions(),
		revocations: newStubSessionRevocations(),
		sink:        &stubAuditSink{},
	}

	audit := NewAuditRecorder(f.sink, logger)

	f.tokenSvc = NewTokenService(cfg, f.users, f.sessions, f.tokenRepo, f.revocations, jwtManager, tokenGen, audit, logger)
	f.auth = NewAuthService(cfg, f.users, f.assignments, f.sessions, f.tokenSvc, f.revocations, jwtManager, audit, logger)
	f.sessionSvc = NewSessionService(cfg, f.sessions, f.assignments, f.tokenSvc, f.tokenRepo, f.versions, f.revocations, audit, logger)
	f.engine = NewPermissionEngine(cfg.RBACCache, f.assignments, f.customRoles, f.versions, audit, logger)
	f.roles = NewRoleService(f.assignments, f.customRoles, f.versions, f.engine, audit, logger)

	return f
}

func (f *fixture) grantProfession(t *testing.T, userID string, profession domain.Profession, orgID *string) domain.ProfessionalRoleAssignment {
	t.Helper()
	assignment := domain.ProfessionalRoleAssignment{
		ID:             "assignment-" + userID + "-" + string(profession),
		UserID:         userID,
		Profession:     profession,
		OrganizationID: orgID,
		GrantedBy:      "system",
		GrantedAt:      time.Now().UTC().Add(-time.Hour),
	}
	f.assignments.assignments = append(f.assignments.assignments, assignment)
	return assignment
}

func newTestUser(t *testing.T, id, email, password string) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &domain.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Add(-24 * time.Hour),
	}
}
