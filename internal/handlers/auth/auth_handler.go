package auth

import (
	"net/http"

	"resonate-service/internal/middleware"
	"resonate-service/internal/pkg/response"
	"resonate-service/internal/registry"
	authService "resonate-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authService.AuthService
	registry    registry.Registry
	logger      *zap.Logger
}

func NewAuthHandler(svc *authService.AuthService, reg registry.Registry, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: svc, registry: reg, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid login payload", err)
		return
	}

	token, accountID, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, req.DeviceID)
	if err != nil {
		response.Unauthorized(c, "invalid credentials")
		return
	}

	response.Success(c, http.StatusOK, "logged in", loginResponse{
		Token:     token,
		AccountID: accountID,
	})
}

// Logout removes this device's registry entry. Only the caller's own entry
// is touched, never the rest of the account's devices.
func (h *AuthHandler) Logout(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)
	deviceID, _ := middleware.GetDeviceID(c)

	if deviceID != "" {
		if err := h.registry.Delete(c.Request.Context(), accountID, deviceID); err != nil {
			h.logger.Warn("failed to remove registry entry on logout",
				zap.String("account_id", accountID), zap.Error(err))
		}
	}

	response.Success(c, http.StatusOK, "logged out", nil)
}
