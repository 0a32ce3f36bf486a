package http

import (
	"net/http"
	"time"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/pkg/csrf"
)

// Cookie names for the browser session. The refresh token is HttpOnly so
// scripts can't read it; the CSRF cookie is readable on purpose, since the
// client must echo it back in the X-XSRF-TOKEN header.
const (
	cookieRefreshToken = "refresh_token"
	cookieCSRF         = "XSRF-TOKEN"
	headerCSRF         = "X-XSRF-TOKEN"
)

func setSessionCookies(w http.ResponseWriter, pair domain.TokenPair, refreshTTL time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieRefreshToken,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookieCSRF,
		Value:    pair.CSRFToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{cookieRefreshToken, cookieCSRF} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == cookieRefreshToken,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// csrfPairFromRequest collects the double-submit halves. Absent cookie or
// header surfaces as an empty value, which the guard rejects.
func csrfPairFromRequest(r *http.Request) csrf.Pair {
	var pair csrf.Pair
	if c, err := r.Cookie(cookieCSRF); err == nil {
		pair.CookieValue = c.Value
	}
	pair.HeaderValue = r.Header.Get(headerCSRF)
	return pair
}

func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(cookieRefreshToken); err == nil {
		return c.Value
	}
	return ""
}
