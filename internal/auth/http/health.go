package http

import (
	"net/http"
	"time"

	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/httpx"
)

// LivezHandler reports process liveness. Exempt from rate limiting so
// monitors polling aggressively never get throttled away.
func LivezHandler(startTime time.Time, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version,
			"uptime":  time.Since(startTime).String(),
		})
	})
}

// ReadyzHandler reports readiness, which includes a live user store.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
			})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version,
			"uptime":  time.Since(startTime).String(),
		})
	})
}
