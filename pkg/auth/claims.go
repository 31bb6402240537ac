package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. The acting user is
// carried both in user_id and the registered sub claim.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// ActorID returns the acting user, preferring user_id and falling back to sub.
func (c *AccessTokenClaims) ActorID() (uuid.UUID, bool) {
	if c == nil {
		return uuid.Nil, false
	}
	if c.UserID != uuid.Nil {
		return c.UserID, true
	}
	if c.Subject == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
