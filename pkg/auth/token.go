// Package auth verifies the HS256 access tokens the identity service signs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
)

// clockSkew is how far token times may drift from ours.
const clockSkew = 30 * time.Second

var (
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("access token invalid")
)

// Verifier checks signature, issuer and expiry, then the claims this
// service relies on.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Verify returns the principal of raw. Every failure wraps ErrTokenInvalid
// or ErrTokenExpired.
func (v *Verifier) Verify(raw string) (Principal, error) {
	if v == nil || len(v.secret) == 0 {
		return Principal{}, fmt.Errorf("%w: verifier has no secret", ErrTokenInvalid)
	}
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, ErrTokenExpired
	case err != nil:
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case claims.UserID == uuid.Nil:
		return Principal{}, fmt.Errorf("%w: no user_id", ErrTokenInvalid)
	case !claims.Role.IsValid():
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims.principal(), nil
}

// Issue signs a token for p the way the identity service does. The API
// never calls it; tests and local tooling share the secret.
func Issue(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case p.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !p.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", p.Role)
	}
	if p.TokenID == "" {
		p.TokenID = uuid.NewString()
	}
	claims := Claims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        p.TokenID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
