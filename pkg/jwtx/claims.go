package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/Songmu/flextime"
	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs for the simulated SSO backend.
const (
	// DefaultAccessTokenTTL is short so refresh paths get exercised.
	DefaultAccessTokenTTL = 5 * time.Minute

	// DefaultRefreshTokenTTL bounds how long a server-side session lives.
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Claims are the access token claims issued for an SSO session.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID, shared with the form login cookie.
	SID string `json:"sid,omitempty"`

	// Username for the authenticated user.
	Username string `json:"username,omitempty"`
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(subject, sid, username, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:      sid,
		Username: username,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before
// nbf, allowing leeway for clock skew.
func (c *Claims) ValidateExpiry(leeway time.Duration) error {
	now := flextime.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
