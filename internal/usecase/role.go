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
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
)

var (
	// ErrPermissionDenied indicates the acting principal lacks the required permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRoleEscalationDenied indicates an attempt to grant authority beyond what the actor may delegate.
	ErrRoleEscalationDenied = errors.New("role escalation denied")
	// ErrRoleDisabled indicates an operation on a soft-disabled custom role.
	ErrRoleDisabled = errors.New("custom role disabled")
)

// RoleService manages professional role assignments and organization custom
// roles. Every mutation bumps the subject version of the affected users so
// cached permission sets die immediately.
type RoleService struct {
	assignments port.RoleAssignmentRepository
	customRoles port.CustomRoleRepository
	versions    port.SubjectVersionStore
	engine      *PermissionEngine
	audit       *AuditRecorder
	logger      *zap.Logger
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(
	assignments port.RoleAssignmentRepository,
	customRoles port.CustomRoleRepository,
	versions port.SubjectVersionStore,
	engine *PermissionEngine,
	audit *AuditRecorder,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		assignments: assignments,
		customRoles: customRoles,
		versions:    versions,
		engine:      engine,
		audit:       audit,
		logger:      logger,
	}
}

func (s *RoleService) requirePermission(ctx context.Context, actor domain.Principal, perm domain.Permission) error {
	decision, err := s.engine.Check(ctx, actor, perm, nil)
	if err != nil {
		return fmt.Errorf("check actor permission: %w", err)
	}
	if !decision.Allow {
		return ErrPermissionDenied
	}
	return nil
}

// requireDelegable enforces that an actor may only hand out authority they
// hold themselves: the actor's effective grant set must contain every
// permission the operation grants or implies. Platform admins hold the full
// catalog and pass trivially.
func (s *RoleService) requireDelegable(ctx context.Context, actor domain.Principal, required domain.PermissionSet) error {
	if actor.Profession.IsAdmin() {
		return nil
	}

	effective, err := s.engine.Resolve(ctx, actor)
	if err != nil {
		return fmt.Errorf("resolve actor permissions: %w", err)
	}
	if !effective.Grants.Contains(required) {
		return ErrRoleEscalationDenied
	}
	return nil
}

func (s *RoleService) bumpVersion(ctx context.Context, userID string) {
	if s.versions == nil {
		return
	}
	if _, err := s.versions.BumpSubjectVersion(ctx, userID); err != nil {
		s.logger.Warn("Failed to bump subject version",
			zap.String("user_id", logSafeID(userID)),
			zap.Error(err),
		)
	}
}

// AssignProfessionInput describes a new professional role assignment.
type AssignProfessionInput struct {
	UserID         string
	Profession     string
	OrganizationID *string
	ExpiresAt      *time.Time
}

// AssignProfession grants a user a professional role. Only a platform admin
// may mint another platform admin.
func (s *RoleService) AssignProfession(ctx context.Context, actor domain.Principal, input AssignProfessionInput) (*domain.ProfessionalRoleAssignment, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleAssign); err != nil {
		return nil, err
	}

	profession, err := domain.ParseProfession(input.Profession)
	if err != nil {
		return nil, err
	}

	if profession.IsAdmin() && !actor.Profession.IsAdmin() {
		return nil, ErrRoleEscalationDenied
	}
	if err := s.requireDelegable(ctx, actor, domain.BasePermissions(profession)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assignment := domain.ProfessionalRoleAssignment{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		Profession:     profession,
		OrganizationID: input.OrganizationID,
		GrantedBy:      actor.UserID,
		GrantedAt:      now,
		ExpiresAt:      input.ExpiresAt,
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	s.bumpVersion(ctx, input.UserID)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditAssignmentGranted,
		UserID: input.UserID,
		At:     now,
		Details: map[string]any{
			"assignment_id": assignment.ID,
			"profession":    string(profession),
			"granted_by":    actor.UserID,
		},
	})

	return &assignment, nil
}

// RevokeAssignment flags the assignment as revoked. The row is kept for
// audit; the subject version bump evicts any cached permissions.
func (s *RoleService) RevokeAssignment(ctx context.Context, actor domain.Principal, assignmentID string) error {
	if assignmentID == "" {
		return fmt.Errorf("assignment id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleAssign); err != nil {
		return err
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("fetch assignment: %w", err)
	}

	now := time.Now().UTC()
	if err := s.assignments.Revoke(ctx, assignmentID, actor.UserID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already revoked.
			return nil
		}
		return fmt.Errorf("revoke assignment: %w", err)
	}

	s.bumpVersion(ctx, assignment.UserID)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditAssignmentRevoked,
		UserID: assignment.UserID,
		At:     now,
		Details: map[string]any{
			"assignment_id": assignmentID,
			"profession":    string(assignment.Profession),
			"revoked_by":    actor.UserID,
		},
	})

	return nil
}

// ListAssignments returns every assignment of a user, revoked included.
func (s *RoleService) ListAssignments(ctx context.Context, userID string) ([]domain.ProfessionalRoleAssignment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CustomRoleInput describes a custom role definition or update.
type CustomRoleInput struct {
	OrganizationID string
	Name           string
	Description    *string
	Permissions    []string
	Denies         []string
}

func parseCustomRolePermissions(input CustomRoleInput) ([]domain.Permission, []domain.Permission, error) {
	permissions := make([]domain.Permission, 0, len(input.Permissions))
	for _, raw := range input.Permissions {
		perm, err := domain.ParsePermission(raw)
		if err != nil {
			return nil, nil, err
		}
		// Custom roles may only bundle permissions from the organization
		// catalog; platform administration is not delegable.
		if !domain.OrganizationCatalog.Has(perm) {
			return nil, nil, ErrRoleEscalationDenied
		}
		permissions = append(permissions, perm)
	}

	denies := make([]domain.Permission, 0, len(input.Denies))
	for _, raw := range input.Denies {
		perm, err := domain.ParsePermission(raw)
		if err != nil {
			return nil, nil, err
		}
		denies = append(denies, perm)
	}

	return permissions, denies, nil
}

// CreateCustomRole defines a new organization-scoped permission bundle.
func (s *RoleService) CreateCustomRole(ctx context.Context, actor domain.Principal, input CustomRoleInput) (*domain.CustomRole, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if input.OrganizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleManage); err != nil {
		return nil, err
	}

	permissions, denies, err := parseCustomRolePermissions(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireDelegable(ctx, actor, domain.NewPermissionSet(permissions...)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role := domain.CustomRole{
		ID:             uuid.NewString(),
		OrganizationID: input.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Permissions:    permissions,
		Denies:         denies,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.customRoles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create custom role: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditCustomRoleCreated,
		UserID: actor.UserID,
		At:     now,
		Details: map[string]any{
			"role_id":         role.ID,
			"organization_id": role.OrganizationID,
			"name":            role.Name,
		},
	})

	return &role, nil
}

// UpdateCustomRole rewrites the role's name, description, and permission
// sets, then invalidates every grantee's cached permissions.
func (s *RoleService) UpdateCustomRole(ctx context.Context, actor domain.Principal, roleID string, input CustomRoleInput) (*domain.CustomRole, error) {
	if roleID == "" {
		return nil, fmt.Errorf("role id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleManage); err != nil {
		return nil, err
	}

	role, err := s.customRoles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("fetch custom role: %w", err)
	}
	if role.IsDisabled() {
		return nil, ErrRoleDisabled
	}

	permissions, denies, err := parseCustomRolePermissions(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireDelegable(ctx, actor, domain.NewPermissionSet(permissions...)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if name := strings.TrimSpace(input.Name); name != "" {
		role.Name = name
	}
	if input.Description != nil {
		role.Description = input.Description
	}
	role.Permissions = permissions
	role.Denies = denies
	role.UpdatedAt = now

	if err := s.customRoles.Update(ctx, *role); err != nil {
		return nil, fmt.Errorf("update custom role: %w", err)
	}

	s.bumpGrantees(ctx, roleID)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditCustomRoleUpdated,
		UserID: actor.UserID,
		At:     now,
		Details: map[string]any{
			"role_id":         role.ID,
			"organization_id": role.OrganizationID,
		},
	})

	return role, nil
}

// DisableCustomRole soft-deletes the role and invalidates every grantee.
func (s *RoleService) DisableCustomRole(ctx context.Context, actor domain.Principal, roleID string) error {
	if roleID == "" {
		return fmt.Errorf("role id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleManage); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.customRoles.Disable(ctx, roleID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("disable custom role: %w", err)
	}

	s.bumpGrantees(ctx, roleID)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:    domain.AuditCustomRoleDisabled,
		UserID:  actor.UserID,
		At:      now,
		Details: map[string]any{"role_id": roleID},
	})

	return nil
}

func (s *RoleService) bumpGrantees(ctx context.Context, roleID string) {
	grantees, err := s.customRoles.ListGranteeIDs(ctx, roleID)
	if err != nil {
		s.logger.Warn("Failed to list grantees for invalidation",
			zap.String("role_id", roleID),
			zap.Error(err),
		)
		return
	}
	for _, userID := range grantees {
		s.bumpVersion(ctx, userID)
	}
}

// GrantCustomRole links a custom role to a user.
func (s *RoleService) GrantCustomRole(ctx context.Context, actor domain.Principal, roleID, userID string) (*domain.CustomRoleGrant, error) {
	if roleID == "" || userID == "" {
		return nil, fmt.Errorf("role id and user id are required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleAssign); err != nil {
		return nil, err
	}

	role, err := s.customRoles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("fetch custom role: %w", err)
	}
	if role.IsDisabled() {
		return nil, ErrRoleDisabled
	}
	// Granting an existing role implies its whole permission bundle.
	if err := s.requireDelegable(ctx, actor, domain.NewPermissionSet(role.Permissions...)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	grant := domain.CustomRoleGrant{
		ID:           uuid.NewString(),
		CustomRoleID: roleID,
		UserID:       userID,
		GrantedBy:    actor.UserID,
		GrantedAt:    now,
	}

	if err := s.customRoles.Grant(ctx, grant); err != nil {
		return nil, fmt.Errorf("grant custom role: %w", err)
	}

	s.bumpVersion(ctx, userID)

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditAssignmentGranted,
		UserID: userID,
		At:     now,
		Details: map[string]any{
			"grant_id":   grant.ID,
			"role_id":    roleID,
			"granted_by": actor.UserID,
		},
	})

	return &grant, nil
}

// RevokeCustomRoleGrant removes a user's custom role grant.
func (s *RoleService) RevokeCustomRoleGrant(ctx context.Context, actor domain.Principal, grantID, userID string) error {
	if grantID == "" {
		return fmt.Errorf("grant id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleAssign); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.customRoles.RevokeGrant(ctx, grantID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("revoke custom role grant: %w", err)
	}

	if userID != "" {
		s.bumpVersion(ctx, userID)
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Type:   domain.AuditAssignmentRevoked,
		UserID: userID,
		At:     now,
		Details: map[string]any{
			"grant_id":   grantID,
			"revoked_by": actor.UserID,
		},
	})

	return nil
}

// ListCustomRoles returns every custom role of an organization.
func (s *RoleService) ListCustomRoles(ctx context.Context, actor domain.Principal, organizationID string) ([]domain.CustomRole, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	if err := s.requirePermission(ctx, actor, domain.PermRoleManage); err != nil {
		return nil, err
	}

	roles, err := s.customRoles.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list custom roles: %w", err)
	}

	return roles, nil
}
