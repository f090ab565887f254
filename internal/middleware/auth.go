package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/services"
)

const userIDKey = "user_id"

// Authenticate requires a Bearer session token and stores the wardrobe
// owner's ID on the request context.
func Authenticate(auth *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "MISSING_BEARER_TOKEN", "Authorization header must be 'Bearer <token>'")
			return
		}

		userID, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.WithError(err).Debug("Session token rejected")
			unauthorized(c, "INVALID_TOKEN", "Invalid or expired session token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}

// UserID reads the authenticated wardrobe owner from the request context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok
}
