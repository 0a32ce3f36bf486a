package service

import (
	"context"
	"errors"
	"time"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/jwtx"
	"github.com/proofile/authcore/pkg/slogx"
)

// Token audiences. Access and refresh tokens are signed the same way but
// carry distinct audiences, so a refresh token can never be accepted where
// an access token is required, and vice versa.
const (
	AudienceAccess  = "proofile:access"
	AudienceRefresh = "proofile:refresh"
)

// TokenService mints and validates the signed access/refresh token pair.
type TokenService struct {
	Codec      *jwtx.Codec
	Users      store.Users
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now is the issuing clock, injectable for tests.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueAccessToken mints a short-lived access token for the user.
func (s *TokenService) IssueAccessToken(u domain.User) (string, error) {
	claims := jwtx.NewClaims(u.ID, u.Role, u.Email, s.Codec.Issuer(), AudienceAccess, s.AccessTTL, s.now())
	return s.Codec.Sign(claims)
}

// IssueRefreshToken mints the longer-lived refresh token for the user.
func (s *TokenService) IssueRefreshToken(u domain.User) (string, error) {
	claims := jwtx.NewClaims(u.ID, u.Role, u.Email, s.Codec.Issuer(), AudienceRefresh, s.RefreshTTL, s.now())
	return s.Codec.Sign(claims)
}

// VerifyAccess validates an access token. Every failure collapses into
// domain.ErrInvalidToken; the underlying cause is logged at debug only, so
// responses never reveal whether the signature, audience, or expiry failed.
func (s *TokenService) VerifyAccess(ctx context.Context, raw string) (jwtx.Claims, error) {
	return s.verify(ctx, raw, AudienceAccess)
}

// VerifyRefresh validates a refresh token.
func (s *TokenService) VerifyRefresh(ctx context.Context, raw string) (jwtx.Claims, error) {
	return s.verify(ctx, raw, AudienceRefresh)
}

func (s *TokenService) verify(ctx context.Context, raw, audience string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(raw, audience)
	if err != nil {
		slogx.FromContext(ctx).Debug("token verification failed",
			"audience", audience,
			"cause", err,
		)
		return jwtx.Claims{}, domain.ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// subject is re-validated against the user store: a refresh token for a
// deleted or deactivated account fails exactly like an invalid token, even
// though the token itself is unexpired.
func (s *TokenService) Refresh(ctx context.Context, refreshRaw string) (string, error) {
	claims, err := s.VerifyRefresh(ctx, refreshRaw)
	if err != nil {
		return "", err
	}

	user, err := s.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("user lookup failed during refresh", "err", err)
		}
		return "", domain.ErrInvalidToken
	}
	if !user.Active {
		slogx.FromContext(ctx).Info("refresh rejected for inactive account", "user_id", user.ID)
		return "", domain.ErrInvalidToken
	}

	return s.IssueAccessToken(user)
}
