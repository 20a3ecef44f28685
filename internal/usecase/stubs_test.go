package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) registerFailure(id string, counter *int, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	user, ok := r.users[id]
	if !ok {
		return port.FailedLoginResult{}, repository.ErrNotFound
	}

	cutoff := at.Add(-policy.Window)
	if user.FailedWindowAt == nil || !user.FailedWindowAt.After(cutoff) {
		*counter = 1
	} else {
		*counter++
	}
	windowAt := at
	user.FailedWindowAt = &windowAt

	result := port.FailedLoginResult{FailedCount: *counter}
	if *counter >= policy.Threshold {
		lockedUntil := at.Add(policy.Duration)
		user.LockedUntil = &lockedUntil
		result.LockedUntil = &lockedUntil
		result.JustLocked = true
	}
	return result, nil
}

func (r *stubUserRepo) RegisterFailedLogin(_ context.Context, id string, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return port.FailedLoginResult{}, repository.ErrNotFound
	}
	return r.registerFailure(id, &user.FailedLoginCount, at, policy)
}

func (r *stubUserRepo) RegisterFailedMFA(_ context.Context, id string, at time.Time, policy port.LockoutPolicy) (port.FailedLoginResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return port.FailedLoginResult{}, repository.ErrNotFound
	}
	return r.registerFailure(id, &user.FailedMFACount, at, policy)
}

func (r *stubUserRepo) ResetLoginCounters(_ context.Context, id string, lastLogin time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginCount = 0
	user.FailedMFACount = 0
	user.FailedWindowAt = nil
	ts := lastLogin
	user.LastLoginAt = &ts
	return nil
}

func (r *stubUserRepo) ClearLock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LockedUntil = nil
	user.FailedLoginCount = 0
	user.FailedMFACount = 0
	user.FailedWindowAt = nil
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *stubUserRepo) StageMFASecret(_ context.Context, id, secret string, backupCodeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.MFASecret = &secret
	user.BackupCodeHashes = backupCodeHashes
	user.MFAEnabled = false
	return nil
}

func (r *stubUserRepo) ActivateMFA(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.MFAEnabled = true
	return nil
}

func (r *stubUserRepo) DisableMFA(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.MFAEnabled = false
	user.MFASecret = nil
	user.BackupCodeHashes = nil
	return nil
}

func (r *stubUserRepo) ConsumeBackupCode(_ context.Context, id, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	for i, hash := range user.BackupCodeHashes {
		if hash == codeHash {
			user.BackupCodeHashes = append(user.BackupCodeHashes[:i], user.BackupCodeHashes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

var _ port.UserRepository = (*stubUserRepo)(nil)

type stubAssignmentRepo struct {
	mu          sync.Mutex
	assignments []domain.ProfessionalRoleAssignment
}

func (r *stubAssignmentRepo) Create(_ context.Context, assignment domain.ProfessionalRoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments = append(r.assignments, assignment)
	return nil
}

func (r *stubAssignmentRepo) GetByID(_ context.Context, id string) (*domain.ProfessionalRoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.assignments {
		if r.assignments[i].ID == id {
			copied := r.assignments[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAssignmentRepo) ListByUser(_ context.Context, userID string) ([]domain.ProfessionalRoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProfessionalRoleAssignment, 0)
	for _, assignment := range r.assignments {
		if assignment.UserID == userID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (r *stubAssignmentRepo) ListUsableByUser(_ context.Context, userID string, at time.Time) ([]domain.ProfessionalRoleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProfessionalRoleAssignment, 0)
	for _, assignment := range r.assignments {
		if assignment.UserID == userID && assignment.IsUsable(at) {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (r *stubAssignmentRepo) Revoke(_ context.Context, id, revokedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.assignments {
		if r.assignments[i].ID == id && r.assignments[i].RevokedAt == nil {
			r.assignments[i].Revoke(at, revokedBy)
			return nil
		}
	}
	return repository.ErrNotFound
}

var _ port.RoleAssignmentRepository = (*stubAssignmentRepo)(nil)

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newStubSessionRepo(sessions ...*domain.Session) *stubSessionRepo {
	repo := &stubSessionRepo{sessions: make(map[string]*domain.Session)}
	for _, session := range sessions {
		repo.sessions[session.ID] = session
	}
	return repo
}

func (r *stubSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *stubSessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *stubSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Session, 0)
	for _, session := range r.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) UpdateLastSeen(_ context.Context, id string, at time.Time, ip, userAgent *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.State != domain.SessionActive {
		return nil
	}
	session.Touch(at, ip, userAgent)
	return nil
}

func (r *stubSessionRepo) UpdateActiveProfession(_ context.Context, id string, profession domain.Profession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.State != domain.SessionActive {
		return repository.ErrNotFound
	}
	session.ActiveProfession = profession
	return nil
}

func (r *stubSessionRepo) SetRefreshToken(_ context.Context, id, refreshTokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.RefreshTokenID = &refreshTokenID
	return nil
}

func (r *stubSessionRepo) Terminate(_ context.Context, id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	session.Terminate(at, reason)
	return nil
}

func (r *stubSessionRepo) TerminateAllForUser(_ context.Context, userID, reason string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.Terminate(at, reason) {
			count++
		}
	}
	return count, nil
}

func (r *stubSessionRepo) TerminateExpired(_ context.Context, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.State == domain.SessionActive && !session.ExpiresAt.After(at) && session.Terminate(at, "expired") {
			count++
		}
	}
	return count, nil
}

var _ port.SessionRepository = (*stubSessionRepo)(nil)

type stubTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (r *stubTokenRepo) Create(_ context.Context, token domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *stubTokenRepo) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == tokenHash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubTokenRepo) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return token.MarkUsed(at), nil
}

func (r *stubTokenRepo) RevokeBySession(_ context.Context, sessionID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, token := range r.tokens {
		if token.SessionID == sessionID && token.Revoke(at) {
			count++
		}
	}
	return count, nil
}

func (r *stubTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, token := range r.tokens {
		if token.IsExpired(before) {
			delete(r.tokens, id)
			count++
		}
	}
	return count, nil
}

var _ port.TokenRepository = (*stubTokenRepo)(nil)

type stubCustomRoleRepo struct {
	mu     sync.Mutex
	roles  map[string]*domain.CustomRole
	grants []domain.CustomRoleGrant
}

func newStubCustomRoleRepo() *stubCustomRoleRepo {
	return &stubCustomRoleRepo{roles: make(map[string]*domain.CustomRole)}
}

func (r *stubCustomRoleRepo) Create(_ context.Context, role domain.CustomRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := role
	r.roles[role.ID] = &copied
	return nil
}

func (r *stubCustomRoleRepo) Update(_ context.Context, role domain.CustomRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.roles[role.ID]
	if !ok || existing.IsDisabled() {
		return repository.ErrNotFound
	}
	copied := role
	r.roles[role.ID] = &copied
	return nil
}

func (r *stubCustomRoleRepo) Disable(_ context.Context, roleID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok || role.IsDisabled() {
		return repository.ErrNotFound
	}
	ts := at
	role.DisabledAt = &ts
	return nil
}

func (r *stubCustomRoleRepo) GetByID(_ context.Context, roleID string) (*domain.CustomRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *stubCustomRoleRepo) ListByOrganization(_ context.Context, organizationID string) ([]domain.CustomRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CustomRole, 0)
	for _, role := range r.roles {
		if role.OrganizationID == organizationID {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *stubCustomRoleRepo) Grant(_ context.Context, grant domain.CustomRoleGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, grant)
	return nil
}

func (r *stubCustomRoleRepo) RevokeGrant(_ context.Context, grantID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.grants {
		if r.grants[i].ID == grantID && r.grants[i].RevokedAt == nil {
			ts := at
			r.grants[i].RevokedAt = &ts
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubCustomRoleRepo) ListActiveRolesForUser(_ context.Context, userID, organizationID string) ([]domain.CustomRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CustomRole, 0)
	for _, grant := range r.grants {
		if grant.UserID != userID || !grant.IsUsable() {
			continue
		}
		role, ok := r.roles[grant.CustomRoleID]
		if !ok || role.IsDisabled() || role.OrganizationID != organizationID {
			continue
		}
		out = append(out, *role)
	}
	return out, nil
}

func (r *stubCustomRoleRepo) ListGranteeIDs(_ context.Context, roleID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0)
	for _, grant := range r.grants {
		if grant.CustomRoleID == roleID && grant.IsUsable() {
			out = append(out, grant.UserID)
		}
	}
	return out, nil
}

var _ port.CustomRoleRepository = (*stubCustomRoleRepo)(nil)

type stubSubjectVersions struct {
	mu       sync.Mutex
	versions map[string]int64
}

func newStubSubjectVersions() *stubSubjectVersions {
	return &stubSubjectVersions{versions: make(map[string]int64)}
}

func (s *stubSubjectVersions) GetSubjectVersion(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID], nil
}

func (s *stubSubjectVersions) BumpSubjectVersion(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[userID]++
	return s.versions[userID], nil
}

var _ port.SubjectVersionStore = (*stubSubjectVersions)(nil)

type stubSessionRevocations struct {
	mu      sync.Mutex
	revoked map[string]string
}

func newStubSessionRevocations() *stubSessionRevocations {
	return &stubSessionRevocations{revoked: make(map[string]string)}
}

func (s *stubSessionRevocations) MarkSessionRevoked(_ context.Context, sessionID, reason string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = reason
	return nil
}

func (s *stubSessionRevocations) IsSessionRevoked(_ context.Context, sessionID string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.revoked[sessionID]
	return ok, reason, nil
}

var _ port.SessionRevocationStore = (*stubSessionRevocations)(nil)

type stubAuditSink struct {
	mu        sync.Mutex
	events    []domain.AuditEvent
	decisions []domain.PermissionDecisionRecord
}

func (s *stubAuditSink) Publish(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubAuditSink) PublishDecision(_ context.Context, record domain.PermissionDecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, record)
	return nil
}

func (s *stubAuditSink) eventsOfType(eventType string) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEvent, 0)
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

var _ port.AuditSink = (*stubAuditSink)(nil)
