// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"resonate-service/internal/pkg/response"
	"resonate-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	authService *auth.AuthService
}

func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Auth validates the bearer token and loads account/device identity into
// the request context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set("account_id", claims.AccountID)
		c.Set("device_id", claims.DeviceID)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetAccountID gets the authenticated account id from context.
func GetAccountID(c *gin.Context) (string, bool) {
	v, exists := c.Get("account_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetDeviceID gets the token's device id from context.
func GetDeviceID(c *gin.Context) (string, bool) {
	v, exists := c.Get("device_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
