package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the JWT payload the engine trusts: the wardrobe owner's
// identity plus the registered expiry fields, nothing more. Account plans and
// billing state live in the account service that issues these tokens.
type SessionClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// RateLimitInfo reports a user's generation-quota state, surfaced through the
// X-RateLimit response headers.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
}
