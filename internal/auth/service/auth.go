package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/cryptox"
	"github.com/proofile/authcore/pkg/csrf"
	"github.com/proofile/authcore/pkg/idx"
	"github.com/proofile/authcore/pkg/slogx"
)

// AuthService is the outward face of the auth core: login, refresh, logout,
// bearer resolution and request admission, composed from the leaf components.
type AuthService struct {
	Users    store.Users
	Tokens   *TokenService
	Sessions *SessionCache
	Throttle *LoginThrottle
	Limiter  *RateLimiter
	CSRF     csrf.Guard
	Policy   cryptox.Policy
}

// NormalizeEmail lowercases and trims a login identifier so throttle keys
// and store lookups agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is verified against when the identifier has no account, so the
// unknown-identifier path costs the same as a wrong password and the two are
// indistinguishable from outside.
var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func dummyVerifyHash() string {
	dummyHashOnce.Do(func() {
		h, err := cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize128))
		if err != nil {
			panic("auth: failed to prepare dummy hash: " + err.Error())
		}
		dummyHash = h
	})
	return dummyHash
}

// Login verifies credentials and, on success, returns the full token pair
// plus a fresh CSRF token for the cookie session.
//
// Failure behavior is uniform by construction: a non-existent identifier and
// a wrong password for a real one take the same path, record the same
// throttle increment, and return the identical ErrInvalidCredentials value.
func (s *AuthService) Login(ctx context.Context, email, secret string) (domain.TokenPair, error) {
	email = NormalizeEmail(email)
	log := slogx.FromContext(ctx)

	if s.Throttle.Locked(ctx, email) {
		return domain.TokenPair{}, domain.ErrTooManyAttempts
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		// fallthrough to verification below
	case errors.Is(err, store.ErrNotFound):
		user = domain.User{PasswordHash: dummyVerifyHash()}
	default:
		// Authentication path fails closed on unexpected store errors.
		log.Error("user lookup failed during login", "err", err)
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	verified := cryptox.VerifyPassword(secret, user.PasswordHash) == nil && user.ID != ""
	if !verified || !user.Active {
		n := s.Throttle.RecordFailure(ctx, email)
		log.Info("login failed", "attempts", n)
		if n >= s.Throttle.Max {
			return domain.TokenPair{}, domain.ErrTooManyAttempts
		}
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	s.Throttle.Clear(ctx, email)

	access, err := s.Tokens.IssueAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Tokens.IssueRefreshToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	csrfToken, err := csrf.NewToken()
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("login succeeded", "user_id", user.ID)
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrfToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.Tokens.AccessTTL,
	}, nil
}

// Refresh exchanges a refresh token for a fresh access token. The CSRF pair
// must check out first: refresh is a state-changing cookie-session operation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, pair csrf.Pair) (string, error) {
	if err := s.CSRF.Check(pair); err != nil {
		return "", err
	}
	return s.Tokens.Refresh(ctx, refreshToken)
}

// Logout tears down the cookie session. Tokens are stateless, so the only
// server-side work is the CSRF check; cookie clearing is the transport's job.
func (s *AuthService) Logout(ctx context.Context, pair csrf.Pair) error {
	return s.CSRF.Check(pair)
}

// ResolveBearer returns the verified identity behind a bearer token, served
// from the session cache within its TTL.
func (s *AuthService) ResolveBearer(ctx context.Context, raw string) (domain.Identity, error) {
	return s.Sessions.Resolve(ctx, raw)
}

// AdmitRequest applies the sliding-window rate limit for (client, route).
func (s *AuthService) AdmitRequest(ctx context.Context, clientKey, routeKey string) Decision {
	return s.Limiter.Admit(ctx, clientKey, routeKey)
}

// Register provisions a new account after enforcing the password policy.
// Strength violations are reported together in one StrengthError.
func (s *AuthService) Register(ctx context.Context, email, secret, fullName, role string) (domain.User, error) {
	email = NormalizeEmail(email)

	if err := s.Policy.Validate(secret); err != nil {
		return domain.User{}, err
	}
	if role == "" {
		role = domain.RoleUser
	}

	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID, "role", role)
	return user, nil
}
