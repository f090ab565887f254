package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/internal/services"
)

func authTestRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "middleware-test-secret",
			TokenTTL:  time.Hour,
		},
	}
	auth := services.NewAuthService(cfg, logger, nil)

	router := gin.New()
	router.Use(Authenticate(auth, logger))
	router.GET("/whoami", func(c *gin.Context) {
		userID, ok := UserID(c)
		require.True(t, ok, "authenticated requests carry the wardrobe owner")
		c.JSON(http.StatusOK, gin.H{"user_id": userID.String()})
	})

	return router, auth
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	router, _ := authTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_BEARER_TOKEN")
}

func TestAuthenticate_MalformedScheme(t *testing.T) {
	router, _ := authTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_BEARER_TOKEN")
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	router, _ := authTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestAuthenticate_ValidTokenPropagatesUser(t *testing.T) {
	router, auth := authTestRouter(t)
	userID := uuid.New()

	token, _, err := auth.IssueToken(context.Background(), userID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestUserID_AbsentFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := UserID(c)
	assert.False(t, ok)
}
