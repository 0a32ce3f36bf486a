package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/cryptox"
	"github.com/proofile/authcore/pkg/slogx"
)

// Session cache defaults. The TTL is deliberately much shorter than the
// access-token lifetime: a deactivated account stays resolvable for at most
// DefaultCacheTTL after the flip.
const (
	DefaultCacheTTL     = 5 * time.Second
	DefaultCacheMaxSize = 4096
)

// SessionCache maps a bearer token to its verified identity for a short
// window, so the same token is not re-verified and re-looked-up on every
// request. Entries are keyed by token fingerprint; raw tokens are never held.
//
// Exactly one verification-and-lookup is in flight per distinct token value:
// concurrent callers bearing the same token block on a per-token mutex and
// observe the freshly populated entry. Distinct tokens proceed in parallel.
type SessionCache struct {
	Tokens *TokenService
	Users  store.Users
	TTL    time.Duration
	// MaxSize bounds memory under adversarial token churn. After the sweep
	// removes expired entries, soonest-expiring live entries are evicted
	// until the cache is under this bound.
	MaxSize int

	// Now is injectable for deterministic expiry tests.
	Now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry

	locksMu sync.Mutex
	locks   map[string]*tokenLock
}

type cacheEntry struct {
	identity  domain.Identity
	expiresAt time.Time
}

type tokenLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionCache(tokens *TokenService, users store.Users, ttl time.Duration, maxSize int) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &SessionCache{
		Tokens:  tokens,
		Users:   users,
		TTL:     ttl,
		MaxSize: maxSize,
		Now:     time.Now,
		entries: make(map[string]cacheEntry),
		locks:   make(map[string]*tokenLock),
	}
}

// Resolve returns the verified identity behind a bearer token, from cache
// when live, otherwise via one deduplicated verify + user-store lookup.
func (c *SessionCache) Resolve(ctx context.Context, raw string) (domain.Identity, error) {
	key := cryptox.FingerprintToken(raw)
	now := c.Now()

	// Fast path: a live entry needs no per-token lock.
	if id, ok := c.lookup(key, now); ok {
		return id, nil
	}

	lock := c.lockToken(key)
	defer c.unlockToken(key, lock)

	// Another caller may have populated the entry while we waited.
	if id, ok := c.lookup(key, c.Now()); ok {
		return id, nil
	}

	claims, err := c.Tokens.VerifyAccess(ctx, raw)
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := c.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("user lookup failed during resolve", "err", err)
		}
		return domain.Identity{}, domain.ErrInvalidToken
	}
	if claims.Email != "" && claims.Email != user.Email {
		// Claims inconsistent with the record they point at.
		slogx.FromContext(ctx).Warn("token claims inconsistent with user record", "user_id", user.ID)
		return domain.Identity{}, domain.ErrInvalidToken
	}

	identity := domain.IdentityOf(user)
	c.put(key, identity)
	return identity, nil
}

// RequireActive gates handlers that must additionally refuse disabled
// accounts.
func RequireActive(id domain.Identity) (domain.Identity, error) {
	if !id.Active {
		return domain.Identity{}, domain.ErrInactiveUser
	}
	return id, nil
}

// RequireRole gates handlers restricted to one platform role. Admins pass
// any role check.
func RequireRole(id domain.Identity, role string) (domain.Identity, error) {
	if id.Role != role && id.Role != domain.RoleAdmin {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return id, nil
}

// Sweep removes expired entries and, if the cache still exceeds MaxSize,
// evicts the soonest-expiring live entries until under the bound. Called
// after every insert and from the housekeeping loop.
func (c *SessionCache) Sweep() {
	now := c.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	excess := len(c.entries) - c.MaxSize
	if excess <= 0 {
		return
	}

	type victim struct {
		key       string
		expiresAt time.Time
	}
	victims := make([]victim, 0, len(c.entries))
	for k, e := range c.entries {
		victims = append(victims, victim{k, e.expiresAt})
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].expiresAt.Before(victims[j].expiresAt)
	})
	for _, v := range victims[:excess] {
		delete(c.entries, v.key)
	}
}

// Len reports the current entry count.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *SessionCache) lookup(key string, now time.Time) (domain.Identity, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !now.Before(e.expiresAt) {
		return domain.Identity{}, false
	}
	return e.identity, true
}

func (c *SessionCache) put(key string, id domain.Identity) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{identity: id, expiresAt: c.Now().Add(c.TTL)}
	over := len(c.entries) > c.MaxSize
	c.mu.Unlock()

	if over {
		c.Sweep()
	}
}

// lockToken acquires the per-token exclusive section, creating the mutex on
// demand. Locks are reference-counted so the map entry can be dropped once
// the last waiter releases, keeping the lock table bounded.
func (c *SessionCache) lockToken(key string) *tokenLock {
	c.locksMu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &tokenLock{}
		c.locks[key] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (c *SessionCache) unlockToken(key string, l *tokenLock) {
	l.mu.Unlock()

	c.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
	c.locksMu.Unlock()
}
