// internal/api/middleware.go
package api

import (
	"strings"

	"todohub/internal/auth"
	"todohub/internal/platform"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the platform access token and stashes the
// identity plus the raw token: handlers forward the token on every store
// call so row-level security runs under the caller, not the service.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 {
			c.JSON(401, gin.H{"error": "Invalid authorization header"})
			c.Abort()
			return
		}

		identity, err := auth.ValidateToken(bearerToken[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", identity.ID)
		c.Set("user_email", identity.Email)
		c.Set("access_token", bearerToken[1])
		c.Request = c.Request.WithContext(platform.WithAccessToken(c.Request.Context(), bearerToken[1]))
		c.Next()
	}
}
