package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

func testAuthService(ttl time.Duration) *AuthService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "unit-test-secret",
			TokenTTL:  ttl,
		},
	}
	return NewAuthService(cfg, logger, nil)
}

func TestAuthService_IssueAndValidateRoundTrip(t *testing.T) {
	auth := testAuthService(time.Hour)
	userID := uuid.New()

	token, expiresAt, err := auth.IssueToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthService_RejectsExpiredToken(t *testing.T) {
	auth := testAuthService(-time.Minute)

	token, _, err := auth.IssueToken(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestAuthService_RejectsTamperedToken(t *testing.T) {
	auth := testAuthService(time.Hour)

	token, _, err := auth.IssueToken(context.Background(), uuid.New())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = auth.ValidateToken(context.Background(), tampered)
	assert.Error(t, err)
}

func TestAuthService_RejectsForeignSecret(t *testing.T) {
	auth := testAuthService(time.Hour)
	userID := uuid.New()

	claims := &models.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), forged)
	assert.Error(t, err)
}

func TestAuthService_RejectsWrongIssuer(t *testing.T) {
	auth := testAuthService(time.Hour)
	userID := uuid.New()

	claims := &models.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), foreign)
	assert.Error(t, err)
}

func TestAuthService_RejectsNilUserID(t *testing.T) {
	auth := testAuthService(time.Hour)

	claims := &models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), anonymous)
	assert.Error(t, err)
}

func TestAuthService_RevokeWithoutSessionStore(t *testing.T) {
	auth := testAuthService(time.Hour)
	assert.NoError(t, auth.RevokeSession(context.Background(), uuid.New()))
}
