package domain

import "time"

// TokenPair is what a successful login returns: the short-lived access token,
// the longer-lived refresh token, and the CSRF token establishing the
// double-submit pair for the cookie session.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	CSRFToken    string        `json:"csrf_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access expiry
}
