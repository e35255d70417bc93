package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "orgreeni",
	ExpirationMinutes: 30,
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := Issue(testJWT, now, Principal{UserID: userID, Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p, err := NewVerifier(testJWT).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, p.UserID)
	}
	if p.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected role %s", p.Role)
	}
	if p.TokenID == "" {
		t.Fatalf("expected jti to be set")
	}
	if want := now.Add(30 * time.Minute).Truncate(time.Second); !p.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, p.ExpiresAt)
	}
}

func TestVerifyReportsExpiry(t *testing.T) {
	token, err := Issue(testJWT, time.Now().Add(-2*time.Hour), Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewVerifier(testJWT).Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToleratesSmallSkew(t *testing.T) {
	// Expired 10s ago, inside the allowed skew.
	issued := time.Now().Add(-30*time.Minute - 10*time.Second)
	token, err := Issue(testJWT, issued, Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewVerifier(testJWT).Verify(token); err != nil {
		t.Fatalf("expected token within skew to verify, got %v", err)
	}
}

func TestVerifyRejectsWrongSecretAndIssuer(t *testing.T) {
	token, err := Issue(testJWT, time.Now(), Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := testJWT
	other.Secret = "different"
	if _, err := NewVerifier(other).Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	other = testJWT
	other.Issuer = "someone-else"
	if _, err := NewVerifier(other).Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}

	if _, err := NewVerifier(config.JWTConfig{}).Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected unconfigured verifier to refuse, got %v", err)
	}
}

func TestVerifyRejectsForeignAlgorithmAndBadClaims(t *testing.T) {
	verifier := NewVerifier(testJWT)
	base := jwt.RegisteredClaims{
		Issuer:    testJWT.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	cases := map[string]struct {
		method jwt.SigningMethod
		claims Claims
	}{
		"hs512":        {jwt.SigningMethodHS512, Claims{UserID: uuid.New(), Role: enums.UserRoleAdmin, RegisteredClaims: base}},
		"unknown role": {jwt.SigningMethodHS256, Claims{UserID: uuid.New(), Role: "vendor", RegisteredClaims: base}},
		"no user":      {jwt.SigningMethodHS256, Claims{Role: enums.UserRoleAdmin, RegisteredClaims: base}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(tc.method, tc.claims).SignedString([]byte(testJWT.Secret))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := verifier.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestIssueValidatesInput(t *testing.T) {
	if _, err := Issue(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := Issue(testJWT, time.Now(), Principal{Role: enums.UserRoleCustomer}); err == nil {
		t.Fatalf("expected missing user error")
	}
	if _, err := Issue(testJWT, time.Now(), Principal{UserID: uuid.New(), Role: "root"}); err == nil {
		t.Fatalf("expected invalid role error")
	}
}
