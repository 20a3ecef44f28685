package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// PasswordHandler exposes the password change endpoint.
type PasswordHandler struct {
	auth *usecase.AuthService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthService) *PasswordHandler {
	return &PasswordHandler{auth: auth}
}

// RegisterRoutes binds the password change route. Requires authentication.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/password", h.change)
}

// Change godoc
// @Summary Change the caller's password
// @Description Verifies the current password, applies the new one, and terminates every other session of the user.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Weak password or invalid payload"
// @Failure 401 {object} ErrorResponse "Current password mismatch"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/password [post]
func (h *PasswordHandler) change(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "current and new password are required"))
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), principal.UserID, req.CurrentPassword, req.NewPassword, principal.SessionID)
	if err != nil {
		var policyErr *security.PasswordValidationError
		switch {
		case errors.As(err, &policyErr):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "WEAK_PASSWORD", policyErr.Error()))
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_CREDENTIALS", "current password is incorrect"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to change password"))
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed; other sessions terminated"})
}
