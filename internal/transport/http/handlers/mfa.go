package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// MFAHandler exposes TOTP enrollment endpoints.
type MFAHandler struct {
	auth *usecase.AuthService
}

// NewMFAHandler constructs MFAHandler.
func NewMFAHandler(auth *usecase.AuthService) *MFAHandler {
	return &MFAHandler{auth: auth}
}

// RegisterRoutes binds MFA routes. All routes require authentication.
func (h *MFAHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/enroll", h.enroll)
	r.POST("/confirm", h.confirm)
	r.POST("/disable", h.disable)
}

// Enroll godoc
// @Summary Start MFA enrollment
// @Description Generates a TOTP secret and backup codes. MFA stays off until a valid code confirms possession. Backup codes are returned exactly once.
// @Tags MFA
// @Produce json
// @Success 200 {object} MFAEnrollResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "MFA already enabled"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/mfa/enroll [post]
func (h *MFAHandler) enroll(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	setup, err := h.auth.StartMFAEnrollment(c.Request.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, usecase.ErrMFAAlreadyEnabled) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "MFA_ALREADY_ENABLED", "mfa is already enabled"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to start mfa enrollment"))
		return
	}

	c.JSON(http.StatusOK, MFAEnrollResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		BackupCodes:     setup.BackupCodes,
	})
}

// Confirm godoc
// @Summary Confirm MFA enrollment
// @Description Activates MFA once the user proves possession of the staged secret with a valid TOTP code.
// @Tags MFA
// @Accept json
// @Produce json
// @Param request body MFAConfirmRequest true "Confirmation payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "No staged enrollment"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/mfa/confirm [post]
func (h *MFAHandler) confirm(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req MFAConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "code is required"))
		return
	}

	err := h.auth.ConfirmMFAEnrollment(c.Request.Context(), principal.UserID, strings.TrimSpace(req.Code))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMFASetupNotStaged):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "MFA_NOT_STAGED", "no staged mfa enrollment"))
		case errors.Is(err, usecase.ErrMFAInvalid):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "MFA_INVALID", "invalid code"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to confirm mfa enrollment"))
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "mfa enabled"})
}

// Disable godoc
// @Summary Disable MFA
// @Description Turns MFA off after password re-authentication. The stored secret and backup codes are discarded.
// @Tags MFA
// @Accept json
// @Produce json
// @Param request body MFADisableRequest true "Disable payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "MFA not enabled"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/mfa/disable [post]
func (h *MFAHandler) disable(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req MFADisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "password is required"))
		return
	}

	err := h.auth.DisableMFA(c.Request.Context(), principal.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMFANotEnabled):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "MFA_NOT_ENABLED", "mfa is not enabled"))
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_CREDENTIALS", "invalid password"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to disable mfa"))
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "mfa disabled"})
}
