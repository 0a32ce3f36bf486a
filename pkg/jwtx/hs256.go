package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Codec signs and verifies HS256 tokens with a shared secret. Safe for
// concurrent use; signing and verification hold no locks.
type Codec struct {
	secret []byte
	issuer string

	// Now is the clock used for window validation. Defaults to time.Now;
	// override in tests for deterministic expiry.
	Now func() time.Time
}

// NewCodec creates an HS256 Codec. The secret must be non-empty; issuer is
// stamped into every minted token and enforced on verification.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &Codec{secret: secret, issuer: issuer, Now: time.Now}, nil
}

// Issuer returns the configured issuer claim value.
func (c *Codec) Issuer() string { return c.issuer }

// Sign mints a compact HS256 token from the claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token in a fixed order: signature, issuer,
// audience, claim presence, validity window. The first failure wins and is
// returned as a jwtx sentinel; callers deciding what to surface outward
// should collapse all of them into one opaque condition.
func (c *Codec) Verify(raw string, audience string) (Claims, error) {
	var claims Claims

	// Claim validation is done by hand below so the check order is fixed
	// and the clock is injectable.
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSig
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrInvalidSig
		}
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidatePresence(); err != nil {
		return Claims{}, err
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if err := claims.ValidateWindow(now().UTC()); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
