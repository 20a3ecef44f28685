package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// AuthzHandler exposes permission introspection endpoints.
type AuthzHandler struct {
	engine *usecase.PermissionEngine
}

// NewAuthzHandler constructs AuthzHandler.
func NewAuthzHandler(engine *usecase.PermissionEngine) *AuthzHandler {
	return &AuthzHandler{engine: engine}
}

// RegisterRoutes binds authorization routes. All routes require authentication.
func (h *AuthzHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/check", h.check)
	r.GET("/permissions", h.effectivePermissions)
}

// Check godoc
// @Summary Evaluate a permission for the caller
// @Description Runs the server-side permission check for the caller's active profession and organization context, returning an explicit decision with its rule trace.
// @Tags Authorization
// @Accept json
// @Produce json
// @Param request body PermissionCheckRequest true "Check payload"
// @Success 200 {object} PermissionCheckResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/authz/check [post]
func (h *AuthzHandler) check(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req PermissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "permission is required"))
		return
	}

	perm, err := domain.ParsePermission(strings.TrimSpace(req.Permission))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "unknown permission"))
		return
	}

	var resource *domain.ResourceContext
	if req.ResourceOwner != nil {
		resource = &domain.ResourceContext{OwnerID: strings.TrimSpace(*req.ResourceOwner)}
	}

	decision, err := h.engine.Check(c.Request.Context(), principal, perm, resource)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "permission check failed"))
		return
	}

	c.JSON(http.StatusOK, PermissionCheckResponse{
		Allow:     decision.Allow,
		Reason:    decision.Reason,
		RuleTrace: decision.RuleTrace,
	})
}

// EffectivePermissions godoc
// @Summary List the caller's effective permissions
// @Description Resolves and returns the caller's effective grants and explicit denies for the active profession and organization context.
// @Tags Authorization
// @Produce json
// @Success 200 {object} EffectivePermissionsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/authz/permissions [get]
func (h *AuthzHandler) effectivePermissions(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	grants, denies, err := h.engine.ListEffective(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to resolve permissions"))
		return
	}

	c.JSON(http.StatusOK, EffectivePermissionsResponse{
		Profession:     string(principal.Profession),
		OrganizationID: principal.OrganizationID,
		Grants:         permissionStrings(grants),
		Denies:         permissionStrings(denies),
	})
}
