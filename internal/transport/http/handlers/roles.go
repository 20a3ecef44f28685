package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/repository"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// RoleHandler exposes role assignment and custom role administration.
type RoleHandler struct {
	roles *usecase.RoleService
}

// NewRoleHandler constructs RoleHandler.
func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RegisterRoutes binds role administration routes. All routes require
// authentication; permission checks run inside the use case against the
// acting principal.
func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/assignments", h.assign)
	r.DELETE("/assignments/:id", h.revokeAssignment)
	r.GET("/users/:id/assignments", h.listAssignments)

	r.POST("/custom", h.createCustomRole)
	r.PUT("/custom/:id", h.updateCustomRole)
	r.DELETE("/custom/:id", h.disableCustomRole)
	r.POST("/custom/:id/grants", h.grantCustomRole)
	r.DELETE("/custom/:id/grants/:grantID", h.revokeCustomRoleGrant)
	r.GET("/organizations/:id", h.listCustomRoles)
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Code: "PERMISSION_DENIED", Message: "insufficient permissions"},
	{Err: usecase.ErrRoleEscalationDenied, Status: http.StatusForbidden, Code: "ROLE_ESCALATION_DENIED", Message: "cannot grant authority beyond the organization catalog"},
	{Err: usecase.ErrRoleDisabled, Status: http.StatusConflict, Code: "ROLE_DISABLED", Message: "custom role is disabled"},
	{Err: repository.ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "resource not found"},
}

// Assign godoc
// @Summary Grant a professional role
// @Description Assigns a profession to a user. Only a platform admin may mint another platform admin.
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body AssignProfessionRequest true "Assignment payload"
// @Success 201 {object} AssignmentPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/assignments [post]
func (h *RoleHandler) assign(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req AssignProfessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "user_id and profession are required"))
		return
	}

	assignment, err := h.roles.AssignProfession(c.Request.Context(), principal, usecase.AssignProfessionInput{
		UserID:         strings.TrimSpace(req.UserID),
		Profession:     strings.TrimSpace(req.Profession),
		OrganizationID: req.OrganizationID,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusBadRequest, "failed to assign profession")
		return
	}

	c.JSON(http.StatusCreated, newAssignmentPayload(*assignment))
}

// RevokeAssignment godoc
// @Summary Revoke a professional role assignment
// @Description Flags the assignment as revoked; the row is kept for audit. Revoking twice is a no-op.
// @Tags Roles
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/assignments/{id} [delete]
func (h *RoleHandler) revokeAssignment(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	if err := h.roles.RevokeAssignment(c.Request.Context(), principal, strings.TrimSpace(c.Param("id"))); err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to revoke assignment")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAssignments godoc
// @Summary List a user's professional role assignments
// @Tags Roles
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} AssignmentListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/users/{id}/assignments [get]
func (h *RoleHandler) listAssignments(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	userID := strings.TrimSpace(c.Param("id"))

	// Users may inspect their own assignments; anything else needs the
	// assignment permission via the use case path.
	if userID != principal.UserID && !principal.Profession.IsAdmin() {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "PERMISSION_DENIED", "insufficient permissions"))
		return
	}

	assignments, err := h.roles.ListAssignments(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to list assignments"))
		return
	}

	payloads := make([]AssignmentPayload, 0, len(assignments))
	for _, assignment := range assignments {
		payloads = append(payloads, newAssignmentPayload(assignment))
	}

	c.JSON(http.StatusOK, AssignmentListResponse{Assignments: payloads})
}

// CreateCustomRole godoc
// @Summary Create an organization custom role
// @Description Defines a named permission bundle clamped to the organization catalog. Platform administration permissions are not delegable.
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body CustomRoleRequest true "Custom role payload"
// @Success 201 {object} CustomRolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/custom [post]
func (h *RoleHandler) createCustomRole(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req CustomRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "invalid custom role payload"))
		return
	}

	role, err := h.roles.CreateCustomRole(c.Request.Context(), principal, usecase.CustomRoleInput{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Name:           req.Name,
		Description:    req.Description,
		Permissions:    req.Permissions,
		Denies:         req.Denies,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusBadRequest, "failed to create custom role")
		return
	}

	c.JSON(http.StatusCreated, newCustomRolePayload(*role))
}

// UpdateCustomRole godoc
// @Summary Update an organization custom role
// @Description Rewrites the role's name, description, and permission sets, invalidating cached permissions of every grantee.
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body CustomRoleRequest true "Custom role payload"
// @Success 200 {object} CustomRolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/custom/{id} [put]
func (h *RoleHandler) updateCustomRole(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req CustomRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "invalid custom role payload"))
		return
	}

	role, err := h.roles.UpdateCustomRole(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), usecase.CustomRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		Denies:      req.Denies,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusBadRequest, "failed to update custom role")
		return
	}

	c.JSON(http.StatusOK, newCustomRolePayload(*role))
}

// DisableCustomRole godoc
// @Summary Disable an organization custom role
// @Description Soft-deletes the role; every grantee's cached permissions are invalidated.
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/custom/{id} [delete]
func (h *RoleHandler) disableCustomRole(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	if err := h.roles.DisableCustomRole(c.Request.Context(), principal, strings.TrimSpace(c.Param("id"))); err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to disable custom role")
		return
	}

	c.Status(http.StatusNoContent)
}

// GrantCustomRole godoc
// @Summary Grant a custom role to a user
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body CustomRoleGrantRequest true "Grant payload"
// @Success 201 {object} CustomRoleGrantResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/custom/{id}/grants [post]
func (h *RoleHandler) grantCustomRole(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req CustomRoleGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "user_id is required"))
		return
	}

	grant, err := h.roles.GrantCustomRole(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.UserID))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to grant custom role")
		return
	}

	c.JSON(http.StatusCreated, CustomRoleGrantResponse{
		GrantID:   grant.ID,
		RoleID:    grant.CustomRoleID,
		UserID:    grant.UserID,
		GrantedAt: grant.GrantedAt,
	})
}

// RevokeCustomRoleGrant godoc
// @Summary Revoke a custom role grant
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Param grantID path string true "Grant ID"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/custom/{id}/grants/{grantID} [delete]
func (h *RoleHandler) revokeCustomRoleGrant(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	userID := strings.TrimSpace(c.Query("user_id"))
	err := h.roles.RevokeCustomRoleGrant(c.Request.Context(), principal, strings.TrimSpace(c.Param("grantID")), userID)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to revoke custom role grant")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCustomRoles godoc
// @Summary List an organization's custom roles
// @Tags Roles
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} CustomRoleListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/organizations/{id} [get]
func (h *RoleHandler) listCustomRoles(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	roles, err := h.roles.ListCustomRoles(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to list custom roles")
		return
	}

	payloads := make([]CustomRolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, newCustomRolePayload(role))
	}

	c.JSON(http.StatusOK, CustomRoleListResponse{Roles: payloads})
}
