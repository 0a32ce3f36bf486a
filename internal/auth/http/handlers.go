package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/service"
	"github.com/proofile/authcore/pkg/cryptox"
	"github.com/proofile/authcore/pkg/csrf"
	"github.com/proofile/authcore/pkg/httpx"
)

// SessionHandler serves the cookie-session endpoints: login, refresh,
// logout, register and the identity echo.
type SessionHandler struct {
	Auth       *service.AuthService
	RefreshTTL time.Duration
	// SecureCookies should be true everywhere TLS terminates in front of us.
	SecureCookies bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	CSRFToken   string `json:"csrf_token,omitempty"`
}

// HandleLogin verifies credentials and establishes the cookie session.
//
//	@Summary	Log in with email and password
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body		loginRequest	true	"login credentials"
//	@Success	200			{object}	tokenResponse
//	@Failure	401			{object}	httpx.ErrorBody
//	@Failure	429			{object}	httpx.ErrorBody
//	@Router		/v1/auth/login [post]
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	setSessionCookies(w, pair, h.RefreshTTL, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int64(pair.ExpiresIn.Seconds()),
		CSRFToken:   pair.CSRFToken,
	})
}

// HandleRefresh exchanges the refresh cookie for a new access token. CSRF
// double-submit is enforced; the initial login is exempt because it is what
// establishes the pair.
//
//	@Summary	Refresh the access token
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	tokenResponse
//	@Failure	401	{object}	httpx.ErrorBody
//	@Failure	403	{object}	httpx.ErrorBody
//	@Router		/v1/auth/refresh [post]
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.Auth.Refresh(r.Context(), refreshTokenFromRequest(r), csrfPairFromRequest(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.Auth.Tokens.AccessTTL.Seconds()),
	})
}

// HandleLogout clears the cookie session after the CSRF check.
//
//	@Summary	Log out
//	@Tags		auth
//	@Success	204
//	@Failure	403	{object}	httpx.ErrorBody
//	@Router		/v1/auth/logout [post]
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), csrfPairFromRequest(r)); err != nil {
		h.writeAuthError(w, err)
		return
	}

	clearSessionCookies(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// HandleRegister provisions a new account.
//
//	@Summary	Register a new account
//	@Tags		auth
//	@Accept		json
//	@Success	201
//	@Failure	400	{object}	httpx.ErrorBody
//	@Router		/v1/auth/register [post]
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.FullName, domain.RoleUser)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

// HandleMe echoes the verified identity behind the bearer token.
//
//	@Summary	Current identity
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]any
//	@Failure	401	{object}	httpx.ErrorBody
//	@Router		/v1/auth/me [get]
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":           identity.ID,
		"email":        identity.Email,
		"display_name": identity.DisplayName,
		"role":         identity.Role,
		"is_active":    identity.Active,
	})
}

// writeAuthError maps core errors onto the uniform HTTP envelope without
// widening the outward taxonomy.
func (h *SessionHandler) writeAuthError(w http.ResponseWriter, err error) {
	var strength *cryptox.StrengthError

	switch {
	case errors.As(err, &strength):
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "weak_password",
			"reasons": strength.Reasons,
		})
	case errors.Is(err, domain.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"too_many_attempts", "Too many failed attempts. Please try again later.")
	case errors.Is(err, csrf.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "CSRF check failed")
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInactiveUser):
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Could not validate credentials")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
