package service

import (
	"context"
	"time"

	"github.com/proofile/authcore/internal/auth/counter"
	"github.com/proofile/authcore/pkg/slogx"
)

const rateKeyPrefix = "rate_limit:"

// RouteLimit is the per-route budget: at most Max requests inside any
// trailing Window.
type RouteLimit struct {
	Max    int64
	Window time.Duration
}

// DefaultRouteLimit applies to routes with no specific override.
var DefaultRouteLimit = RouteLimit{Max: 60, Window: time.Minute}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	// RetryAfter is how long a limited client must wait for the window to
	// empty enough to admit it. Zero when Allowed.
	RetryAfter time.Duration
	// Exempt marks health-style routes that bypass limiting entirely.
	Exempt bool
	// Degraded marks requests admitted because the counter store was
	// unreachable. Callers must not attach rate-limit headers for these.
	Degraded bool
}

// RateLimiter admits or rejects requests keyed by (client, route) using a
// sliding window over the shared counter store. Unavailability of the store
// never becomes unavailability of the service: on store errors the request
// is admitted and the failure logged.
type RateLimiter struct {
	Store   counter.Store
	Default RouteLimit
	// Routes overrides the default budget per route key.
	Routes map[string]RouteLimit
	// Exempt routes (health checks) skip limiting.
	Exempt map[string]struct{}

	// Now is injectable for deterministic window tests.
	Now func() time.Time
}

func NewRateLimiter(store counter.Store) *RateLimiter {
	return &RateLimiter{
		Store:   store,
		Default: DefaultRouteLimit,
		Routes:  make(map[string]RouteLimit),
		Exempt:  make(map[string]struct{}),
		Now:     time.Now,
	}
}

func (l *RateLimiter) limitFor(routeKey string) RouteLimit {
	if rl, ok := l.Routes[routeKey]; ok {
		return rl
	}
	if l.Default.Max > 0 {
		return l.Default
	}
	return DefaultRouteLimit
}

// Admit records the request in the (client, route) window and decides
// admission: prune events older than the window, add this one, compare the
// resulting cardinality against the route budget.
func (l *RateLimiter) Admit(ctx context.Context, clientKey, routeKey string) Decision {
	if _, ok := l.Exempt[routeKey]; ok {
		return Decision{Allowed: true, Exempt: true}
	}

	limit := l.limitFor(routeKey)
	key := rateKeyPrefix + clientKey + ":" + routeKey
	now := l.Now()

	stat, err := l.Store.SlideWindow(ctx, key, now, limit.Window)
	if err != nil {
		slogx.FromContext(ctx).Warn("rate limiter unavailable, admitting request",
			"client", clientKey,
			"route", routeKey,
			"err", err,
		)
		return Decision{Allowed: true, Degraded: true}
	}

	if stat.Count > limit.Max {
		retry := limit.Window
		if !stat.Oldest.IsZero() {
			retry = stat.Oldest.Add(limit.Window).Sub(now)
		}
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{
			Allowed:    false,
			Limit:      limit.Max,
			Remaining:  0,
			RetryAfter: retry.Round(time.Second),
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     limit.Max,
		Remaining: limit.Max - stat.Count,
	}
}
