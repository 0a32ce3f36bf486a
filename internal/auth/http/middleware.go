package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/proofile/authcore/internal/auth/service"
	"github.com/proofile/authcore/pkg/httpx"
	"github.com/proofile/authcore/pkg/slogx"
)

// RateLimitMiddleware runs the cross-process sliding-window limiter before
// any other work, keyed by client IP and route path. Degraded (fail-open)
// requests carry no rate-limit headers.
func RateLimitMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := auth.AdmitRequest(r.Context(), httpx.ClientIP(r), r.URL.Path)

			if decision.Exempt || decision.Degraded {
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				retryAfter := strconv.Itoa(int(decision.RetryAfter.Seconds()))
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
				w.Header().Set("X-RateLimit-Reset", retryAfter)
				w.Header().Set("Retry-After", retryAfter)
				httpx.WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded",
					"Too many requests. Please try again after "+retryAfter+" seconds.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// AuthnMiddleware resolves the bearer token through the session cache and
// attaches the verified identity to the request context. Inactive accounts
// are rejected here; handlers that tolerate them mount without this.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			identity, err := auth.ResolveBearer(r.Context(), raw)
			if err != nil {
				slogx.FromContext(r.Context()).Warn("bearer resolution failed", "err", err)
				writeBearerError(w, "could not validate credentials")
				return
			}

			if _, err := service.RequireActive(identity); err != nil {
				writeBearerError(w, "could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
