package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"id,omitempty"`
	Roles  []string `json:"roles"`
}

// Identity returns the caller identity from the claims, preferring the
// standard subject.
func (c *Claims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	if c.UserID != "" {
		return c.UserID
	}
	return "unknown"
}

// Verifier validates bearer tokens in one of two modes: symmetric
// shared-secret (HS256) or asymmetric public-key (RS256). A Verifier with
// neither configured reports Configured() == false and every protected
// route fails closed with a server-configuration error.
type Verifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewVerifier selects the verification mode from configuration. The
// base64-encoded PEM public key takes precedence over the shared secret.
func NewVerifier(secret, publicKeyBase64 string) (*Verifier, error) {
	if publicKeyBase64 != "" {
		pemBytes, err := base64.StdEncoding.DecodeString(publicKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("decode public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		return &Verifier{publicKey: key}, nil
	}
	if secret != "" {
		return &Verifier{secret: []byte(secret)}, nil
	}
	return &Verifier{}, nil
}

// Configured reports whether a verification mode is available.
func (v *Verifier) Configured() bool {
	return v.secret != nil || v.publicKey != nil
}

// Parse validates a token and returns its claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if v.publicKey != nil {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.publicKey, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GenerateAccessToken creates a signed HS256 JWT with subject and roles.
// Used by tooling and tests; tokens are normally issued elsewhere.
func GenerateAccessToken(userID string, roles []string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
