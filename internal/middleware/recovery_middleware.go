// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"resonate-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.Any("panic", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				}
				if accountID, ok := GetAccountID(c); ok {
					fields = append(fields, zap.String("account_id", accountID))
				}
				if deviceID, ok := GetDeviceID(c); ok {
					fields = append(fields, zap.String("session_id", deviceID))
				}
				logger.Error("panic recovered", fields...)
				response.Error(c, http.StatusInternalServerError, "internal server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
