// internal/api/middleware/ratelimit.go
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"todohub/internal/constants"
	"todohub/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

func RateLimitMiddleware(rl *ratelimit.RateLimiter, key string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Windows are per identity; these routes always run behind auth.
		scopedKey := fmt.Sprintf("%s:%s", key, c.GetString("user_id"))
		allowed, count, err := rl.Allow(c.Request.Context(), scopedKey, limit, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-count))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Specific rate limit middlewares
func TaskMutationRateLimit(rl *ratelimit.RateLimiter) gin.HandlerFunc {
	return RateLimitMiddleware(rl, "ratelimit:tasks", constants.TaskMutationLimit, time.Minute)
}

func TeamMutationRateLimit(rl *ratelimit.RateLimiter) gin.HandlerFunc {
	return RateLimitMiddleware(rl, "ratelimit:teams", constants.TeamMutationLimit, time.Minute)
}

func AcceptInviteRateLimit(rl *ratelimit.RateLimiter) gin.HandlerFunc {
	return RateLimitMiddleware(rl, "ratelimit:invite", constants.AcceptInviteLimit, time.Minute)
}

func UploadRateLimit(rl *ratelimit.RateLimiter) gin.HandlerFunc {
	return RateLimitMiddleware(rl, "ratelimit:upload", constants.AvatarUploadLimit, time.Minute)
}
