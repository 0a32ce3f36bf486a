package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/proofile/authcore/internal/auth/service"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/httpx"
	"github.com/proofile/authcore/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	auth         *service.AuthService
	store        store.Store
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	refreshTTL    time.Duration
	secureCookies bool
}

func NewRouter(
	auth *service.AuthService,
	st store.Store,
	buildVersion string,
	refreshTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		auth:          auth,
		store:         st,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}

	// Request logging outermost, then the cross-process limiter: a rejected
	// request never reaches any handler work.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		RateLimitMiddleware(r.auth),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Proofile Auth Service API
//	@version		0.1.0
//	@description	Authentication and session-security core: credential login,
//	@description	JWT access/refresh tokens, CSRF-protected cookie sessions.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		Auth:          r.auth,
		RefreshTTL:    r.refreshTTL,
		SecureCookies: r.secureCookies,
	}

	// Credential endpoints get an extra in-process burst guard in front of
	// the distributed limiter.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.BurstGuard(httpx.StrictBurst),
		),
	)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.BurstGuard(httpx.StrictBurst),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh", http.HandlerFunc(h.HandleRefresh))
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout))

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			AuthnMiddleware(r.auth),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
