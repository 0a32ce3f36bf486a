package service

import (
	"context"
	"strings"
	"time"

	"github.com/proofile/authcore/internal/auth/counter"
	"github.com/proofile/authcore/pkg/slogx"
)

// Login throttle defaults: five failures within fifteen minutes locks the
// identifier until the window lapses.
const (
	DefaultThrottleMax    = 5
	DefaultThrottleWindow = 15 * time.Minute

	throttleKeyPrefix = "login_failures:"
)

// LoginThrottle counts failed logins per normalized identifier in the shared
// counter store. The same threshold and window apply whether or not the
// identifier belongs to a real account, so lockout behavior reveals nothing
// about account existence.
//
// Lockout is defense in depth, not the authentication boundary: when the
// counter store is unreachable the throttle fails open by default and lets
// the attempt proceed. FailClosed flips that for stricter postures.
type LoginThrottle struct {
	Store      counter.Store
	Max        int64
	Window     time.Duration
	FailClosed bool
}

func throttleKey(identifier string) string {
	return throttleKeyPrefix + strings.ToLower(strings.TrimSpace(identifier))
}

// Locked reports whether the identifier has already reached the lockout
// threshold, without recording anything.
func (t *LoginThrottle) Locked(ctx context.Context, identifier string) bool {
	n, err := t.Store.Get(ctx, throttleKey(identifier))
	if err != nil {
		slogx.FromContext(ctx).Warn("login throttle unavailable", "op", "get", "err", err)
		return t.FailClosed
	}
	return n >= t.Max
}

// RecordFailure increments the failure counter, refreshes its window TTL,
// and returns the new count for the caller to compare against Max. On store
// failure it returns 0 (fail open) or Max (fail closed).
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier string) int64 {
	n, err := t.Store.IncrementWithTTL(ctx, throttleKey(identifier), t.Window)
	if err != nil {
		slogx.FromContext(ctx).Warn("login throttle unavailable", "op", "incr", "err", err)
		if t.FailClosed {
			return t.Max
		}
		return 0
	}
	return n
}

// Clear removes the failure counter outright after a successful
// authentication.
func (t *LoginThrottle) Clear(ctx context.Context, identifier string) {
	if err := t.Store.Delete(ctx, throttleKey(identifier)); err != nil {
		slogx.FromContext(ctx).Warn("login throttle unavailable", "op", "clear", "err", err)
	}
}
