package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/services"
)

// RateLimit applies the per-user generation quota. Must run after
// Authenticate; without a user there is no quota key.
func RateLimit(quota *services.RateLimitService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			logger.Error("Quota middleware reached without an authenticated user")
			c.Next()
			return
		}

		allowed, info, err := quota.Allow(c.Request.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("Quota check errored, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt, 10))

		if !allowed {
			logger.WithFields(logrus.Fields{
				"user_id": userID,
				"limit":   info.Limit,
			}).Warn("Generation quota exhausted")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "QUOTA_EXCEEDED",
					"message": "Generation quota exhausted for this window",
				},
				"rate_limit": info,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
