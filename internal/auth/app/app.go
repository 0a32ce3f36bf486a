package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proofile/authcore/internal/auth/counter"
	httpapi "github.com/proofile/authcore/internal/auth/http"
	"github.com/proofile/authcore/internal/auth/service"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/internal/auth/store/drivers/sqlite"
	"github.com/proofile/authcore/pkg/cryptox"
	"github.com/proofile/authcore/pkg/csrf"
	"github.com/proofile/authcore/pkg/jwtx"
	"github.com/proofile/authcore/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	counters counter.Store
	auth     *service.AuthService

	server *http.Server
	router *httpapi.Router

	sweepDone chan struct{}
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		sweepDone: make(chan struct{}),
	}

	if cfg.SigningSecret == "" {
		return nil, errors.New("AUTH_SIGNING_SECRET is required")
	}

	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.db = db

	counters, err := app.initCounterStore()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.counters = counters

	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// initCounterStore selects the shared counter store driver by configuration:
// memory for single-process deployments, redis for anything that scales out.
func (app *Application) initCounterStore() (counter.Store, error) {
	switch app.cfg.CounterBackend {
	case "redis":
		rs, err := counter.DialRedis(app.cfg.RedisAddr, app.cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.logger.Info("counter store ready", "backend", "redis", "addr", app.cfg.RedisAddr)
		return rs, nil
	case "memory", "":
		app.logger.Info("counter store ready", "backend", "memory")
		return counter.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown counter backend %q", app.cfg.CounterBackend)
	}
}

func (app *Application) initServices() error {
	codec, err := jwtx.NewCodec([]byte(app.cfg.SigningSecret), app.cfg.Issuer)
	if err != nil {
		return err
	}

	tokens := &service.TokenService{
		Codec:      codec,
		Users:      app.db.Users(),
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	limiter := service.NewRateLimiter(app.counters)
	limiter.Default = service.RouteLimit{Max: app.cfg.RateLimitMax, Window: app.cfg.RateLimitWindow}
	// Credential endpoints get a tighter budget than the default.
	limiter.Routes["/v1/auth/login"] = service.RouteLimit{Max: 10, Window: time.Minute}
	limiter.Routes["/v1/auth/register"] = service.RouteLimit{Max: 10, Window: time.Minute}
	limiter.Exempt["/livez"] = struct{}{}
	limiter.Exempt["/readyz"] = struct{}{}

	app.auth = &service.AuthService{
		Users:    app.db.Users(),
		Tokens:   tokens,
		Sessions: service.NewSessionCache(tokens, app.db.Users(), app.cfg.CacheTTL, app.cfg.CacheMaxSize),
		Throttle: &service.LoginThrottle{
			Store:      app.counters,
			Max:        app.cfg.ThrottleMax,
			Window:     app.cfg.ThrottleWindow,
			FailClosed: app.cfg.ThrottleFailClosed,
		},
		Limiter: limiter,
		CSRF:    csrf.Guard{Disabled: app.cfg.CSRFDisabled},
		Policy:  cryptox.DefaultPolicy(),
	}

	return nil
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(
		app.auth,
		app.db,
		BuildVersion,
		app.cfg.RefreshTTL,
		app.cfg.SecureCookies,
		app.logger,
	)
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.startSweeper()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// startSweeper periodically evicts expired session-cache entries so memory
// stays bounded even when no request traffic triggers a sweep.
func (app *Application) startSweeper() {
	interval := app.cfg.SweepInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				app.auth.Sessions.Sweep()
			case <-app.sweepDone:
				return
			}
		}
	}()
}

// Shutdown performs a graceful shutdown of the application.
func (app *Application) Shutdown() error {
	close(app.sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGrace)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return err
	}

	if closer, ok := app.counters.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Warn("counter store close failed", "err", err)
		}
	}

	return app.db.Close()
}
