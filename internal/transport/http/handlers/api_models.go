package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

// ErrorResponse represents a generic error payload with a stable machine
// readable code and trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		Code:    code,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	MFACode     string `json:"mfa_code"`
	BackupCode  string `json:"backup_code"`
	Profession  string `json:"profession"`
	DeviceLabel string `json:"device_label"`
}

// SessionSummary provides a compact view of session context in login responses.
type SessionSummary struct {
	ID               string    `json:"id"`
	ActiveProfession string    `json:"active_profession"`
	OrganizationID   *string   `json:"organization_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	User         UserSummary    `json:"user"`
	Session      SessionSummary `json:"session"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenRefreshResponse contains tokens issued by the refresh endpoint.
type TokenRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// MFAEnrollResponse returns the staged TOTP secret and single-use backup
// codes. Backup codes are shown exactly once.
type MFAEnrollResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// MFAConfirmRequest carries the TOTP code proving possession of the secret.
type MFAConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// MFADisableRequest requires password re-authentication to turn MFA off.
type MFADisableRequest struct {
	Password string `json:"password" binding:"required"`
}

// SessionPayload describes a session view in API responses.
type SessionPayload struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	ActiveProfession  string     `json:"active_profession"`
	OrganizationID    *string    `json:"organization_id,omitempty"`
	State             string     `json:"state"`
	DeviceLabel       *string    `json:"device_label,omitempty"`
	IP                *string    `json:"ip,omitempty"`
	UserAgent         *string    `json:"user_agent,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastSeenAt        time.Time  `json:"last_seen_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	TerminatedAt      *time.Time `json:"terminated_at,omitempty"`
	TerminationReason *string    `json:"termination_reason,omitempty"`
	IsCurrent         bool       `json:"is_current,omitempty"`
}

// SessionListResponse wraps a list of sessions for a user.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// SessionBulkTerminateResponse summarises bulk termination operations.
type SessionBulkTerminateResponse struct {
	TerminatedCount int `json:"terminated_count"`
}

// SwitchProfessionRequest selects a different granted profession for the
// current session.
type SwitchProfessionRequest struct {
	Profession string `json:"profession" binding:"required"`
}

// SwitchProfessionResponse returns the updated session and a fresh token pair.
type SwitchProfessionResponse struct {
	Session      SessionPayload `json:"session"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
}

// PermissionCheckRequest asks whether the caller holds a permission, with an
// optional resource context for ownership-restricted permissions.
type PermissionCheckRequest struct {
	Permission    string  `json:"permission" binding:"required"`
	ResourceOwner *string `json:"resource_owner,omitempty"`
}

// PermissionCheckResponse conveys the explicit decision.
type PermissionCheckResponse struct {
	Allow     bool     `json:"allow"`
	Reason    string   `json:"reason"`
	RuleTrace []string `json:"rule_trace,omitempty"`
}

// EffectivePermissionsResponse lists the caller's resolved permission sets.
type EffectivePermissionsResponse struct {
	Profession     string   `json:"profession"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	Grants         []string `json:"grants"`
	Denies         []string `json:"denies,omitempty"`
}

// AssignProfessionRequest grants a user a professional role.
type AssignProfessionRequest struct {
	UserID         string     `json:"user_id" binding:"required"`
	Profession     string     `json:"profession" binding:"required"`
	OrganizationID *string    `json:"organization_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// AssignmentPayload summarizes a professional role assignment.
type AssignmentPayload struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Profession     string     `json:"profession"`
	OrganizationID *string    `json:"organization_id,omitempty"`
	GrantedBy      string     `json:"granted_by"`
	GrantedAt      time.Time  `json:"granted_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// AssignmentListResponse wraps a user's assignments.
type AssignmentListResponse struct {
	Assignments []AssignmentPayload `json:"assignments"`
}

// CustomRoleRequest defines the payload for creating or updating a custom role.
type CustomRoleRequest struct {
	OrganizationID string   `json:"organization_id"`
	Name           string   `json:"name"`
	Description    *string  `json:"description,omitempty"`
	Permissions    []string `json:"permissions"`
	Denies         []string `json:"denies"`
}

// CustomRolePayload summarizes a custom role entity.
type CustomRolePayload struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	Permissions    []string   `json:"permissions"`
	Denies         []string   `json:"denies,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty"`
}

// CustomRoleListResponse wraps multiple custom roles.
type CustomRoleListResponse struct {
	Roles []CustomRolePayload `json:"roles"`
}

// CustomRoleGrantRequest links a custom role to a user.
type CustomRoleGrantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CustomRoleGrantResponse returns the created grant.
type CustomRoleGrantResponse struct {
	GrantID   string    `json:"grant_id"`
	RoleID    string    `json:"role_id"`
	UserID    string    `json:"user_id"`
	GrantedAt time.Time `json:"granted_at"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// JWKSKey describes an individual JSON Web Key in the JWKS response.
type JWKSKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the JSON Web Key Set payload.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// newUserSummary converts a domain user to a summary suitable for API
// responses. Credential material is never mapped.
func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		MFAEnabled:  user.MFAEnabled,
		LockedUntil: user.LockedUntil,
		LastLoginAt: user.LastLoginAt,
	}
}

// newSessionPayload converts a domain session to an API session payload.
func newSessionPayload(session domain.Session) SessionPayload {
	payload := SessionPayload{
		ID:               session.ID,
		UserID:           session.UserID,
		ActiveProfession: string(session.ActiveProfession),
		OrganizationID:   session.OrganizationID,
		State:            string(session.State),
		CreatedAt:        session.CreatedAt,
		LastSeenAt:       session.LastSeenAt,
		ExpiresAt:        session.ExpiresAt,
	}

	if session.DeviceLabel != nil {
		payload.DeviceLabel = session.DeviceLabel
	}
	if session.IP != nil {
		payload.IP = session.IP
	}
	if session.UserAgent != nil {
		payload.UserAgent = session.UserAgent
	}
	if session.TerminatedAt != nil {
		payload.TerminatedAt = session.TerminatedAt
	}
	if session.TerminationReason != nil {
		payload.TerminationReason = session.TerminationReason
	}

	return payload
}

func newSessionSummary(session domain.Session) SessionSummary {
	return SessionSummary{
		ID:               session.ID,
		ActiveProfession: string(session.ActiveProfession),
		OrganizationID:   session.OrganizationID,
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
	}
}

func newAssignmentPayload(assignment domain.ProfessionalRoleAssignment) AssignmentPayload {
	return AssignmentPayload{
		ID:             assignment.ID,
		UserID:         assignment.UserID,
		Profession:     string(assignment.Profession),
		OrganizationID: assignment.OrganizationID,
		GrantedBy:      assignment.GrantedBy,
		GrantedAt:      assignment.GrantedAt,
		ExpiresAt:      assignment.ExpiresAt,
		RevokedAt:      assignment.RevokedAt,
	}
}

func newCustomRolePayload(role domain.CustomRole) CustomRolePayload {
	return CustomRolePayload{
		ID:             role.ID,
		OrganizationID: role.OrganizationID,
		Name:           role.Name,
		Description:    role.Description,
		Permissions:    permissionStrings(role.Permissions),
		Denies:         permissionStrings(role.Denies),
		CreatedAt:      role.CreatedAt,
		UpdatedAt:      role.UpdatedAt,
		DisabledAt:     role.DisabledAt,
	}
}

func permissionStrings(perms []domain.Permission) []string {
	if len(perms) == 0 {
		return nil
	}
	out := make([]string, len(perms))
	for i, perm := range perms {
		out[i] = string(perm)
	}
	return out
}
