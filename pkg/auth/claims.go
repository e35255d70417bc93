package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Claims is the access token body. Tokens are issued by the identity
// service; this service only verifies them.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the caller a verified token speaks for.
type Principal struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	TokenID   string
	ExpiresAt time.Time
}

func (c *Claims) principal() Principal {
	p := Principal{UserID: c.UserID, Role: c.Role, TokenID: c.ID}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}
