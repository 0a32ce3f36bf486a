// Package csrf implements double-submit cookie protection: a random token is
// issued both as a cookie and in the response body at login, and every
// state-changing session request must echo the cookie value back in a header.
package csrf

import (
	"crypto/subtle"
	"errors"

	"github.com/proofile/authcore/pkg/cryptox"
)

// ErrForbidden is returned when the cookie/header pair is absent or unequal.
var ErrForbidden = errors.New("csrf: token mismatch")

// Pair carries the two halves of a double-submit check. Never persisted.
type Pair struct {
	CookieValue string
	HeaderValue string
}

// Guard compares double-submit pairs. The zero value is an enabled guard.
type Guard struct {
	// Disabled skips the check entirely. This is an explicit operational
	// escape hatch for tests and local tooling, not a tuning knob.
	Disabled bool
}

// NewToken mints a fresh CSRF token for a login response.
func NewToken() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize128)
}

// Check validates a double-submit pair. Both values must be present and
// byte-equal. The comparison is constant-time, although the token is not a
// secret from the legitimate client.
func (g Guard) Check(p Pair) error {
	if g.Disabled {
		return nil
	}
	if p.CookieValue == "" || p.HeaderValue == "" {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(p.CookieValue), []byte(p.HeaderValue)) != 1 {
		return ErrForbidden
	}
	return nil
}
