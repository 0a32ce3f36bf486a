package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/proofile/authcore/pkg/idx"
)

// Default token TTLs. Short access tokens limit the blast radius of a leaked
// bearer token; the refresh token carries the longer session.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are the token claims used across the service. Access and refresh
// tokens share this shape and differ only by audience.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the platform role of the subject ("admin", "user", "recruiter").
	Role string `json:"role,omitempty"`

	// Email mirrors the subject's login identifier for downstream handlers
	// that render it without a user-store round trip.
	Email string `json:"email,omitempty"`
}

// NewClaims builds minimally-correct claims for a token of the given
// audience. Stamps iat = nbf = now and exp = now + ttl, so the validity
// window invariant iat <= nbf <= exp holds by construction.
func NewClaims(subject, role, email, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Role:  role,
		Email: email,
	}
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if !slices.Contains(c.Audience, expected) {
		return ErrAudience
	}
	return nil
}

// ValidatePresence ensures the claims a caller relies on actually exist.
// A token without a subject or expiry is rejected outright.
func (c *Claims) ValidatePresence() error {
	if c.Subject == "" || c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	return nil
}

// ValidateWindow ensures now falls inside [nbf, exp].
func (c *Claims) ValidateWindow(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
