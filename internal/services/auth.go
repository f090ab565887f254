package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

const tokenIssuer = "outfit-engine"

// AuthService signs and verifies the session tokens the wardrobe API
// requires. Tokens are HS256 JWTs carrying only the user's identity; a
// session entry in Redis lets revocation take effect before the token's
// natural expiry. Without Redis, validation degrades to signature and expiry
// checks alone.
type AuthService struct {
	cfg      *config.AuthConfig
	logger   *logrus.Logger
	sessions *redis.Client // optional
	secret   []byte
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		cfg:      &cfg.Auth,
		logger:   logger,
		sessions: redisClient,
		secret:   []byte(cfg.Auth.JWTSecret),
	}
}

func sessionKey(userID uuid.UUID) string {
	return "auth:session:" + userID.String()
}

// IssueToken mints a session token for the wardrobe owner and registers the
// session for revocation tracking.
func (s *AuthService) IssueToken(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := &models.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	if s.sessions != nil {
		if err := s.sessions.Set(ctx, sessionKey(userID), signed, s.cfg.TokenTTL).Err(); err != nil {
			s.logger.WithError(err).Warn("Session store unavailable, token issued without revocation support")
		}
	}

	return signed, expiresAt, nil
}

// ValidateToken verifies signature, expiry and issuer, then checks the
// session has not been revoked. Returns the wardrobe owner's ID.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid session claims")
	}

	if s.sessions != nil {
		exists, err := s.sessions.Exists(ctx, sessionKey(claims.UserID)).Result()
		if err != nil {
			s.logger.WithError(err).Warn("Session check unavailable, accepting token on signature alone")
		} else if exists == 0 {
			return uuid.Nil, fmt.Errorf("session revoked or expired")
		}
	}

	return claims.UserID, nil
}

// RevokeSession invalidates every outstanding token for the user.
func (s *AuthService) RevokeSession(ctx context.Context, userID uuid.UUID) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
