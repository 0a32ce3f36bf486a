package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofile/authcore/internal/auth/domain"
)

func newTestCache(t *testing.T, users *fakeUsers, ttl time.Duration, maxSize int) (*SessionCache, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t, users)
	return NewSessionCache(tokens, users, ttl, maxSize), tokens
}

func TestSessionCache_ResolveCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers(user)
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	id, err := cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.ID)
	require.EqualValues(t, 1, users.getByIDCalls.Load())

	// Second resolve inside the TTL is served from cache.
	id, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.ID)
	require.EqualValues(t, 1, users.getByIDCalls.Load())
}

func TestSessionCache_ExpiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers(user)
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	now := time.Now()
	cache.Now = func() time.Time { return now }

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.EqualValues(t, 1, users.getByIDCalls.Load())

	now = now.Add(6 * time.Second)

	_, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.EqualValues(t, 2, users.getByIDCalls.Load())
}

func TestSessionCache_DeactivationVisibleAfterTTL(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers(user)
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	now := time.Now()
	cache.Now = func() time.Time { return now }

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	id, err := cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.True(t, id.Active)

	require.NoError(t, users.SetUserActive(ctx, user.ID, false))

	// Within the TTL the cached snapshot may still report active.
	id, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.True(t, id.Active)

	// Past the TTL the deactivation is observed.
	now = now.Add(6 * time.Second)
	id, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.False(t, id.Active)

	_, err = RequireActive(id)
	require.ErrorIs(t, err, domain.ErrInactiveUser)
}

func TestSessionCache_ConcurrentResolveSingleLookup(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers(user)
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	const callers = 32
	var wg sync.WaitGroup
	wg.Add(callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			id, err := cache.Resolve(ctx, raw)
			require.NoError(t, err)
			require.Equal(t, user.ID, id.ID)
		}()
	}
	close(start)
	wg.Wait()

	// Duplicate work is coalesced: one verify-and-lookup for all callers.
	require.EqualValues(t, 1, users.getByIDCalls.Load())
}

func TestSessionCache_InvalidTokenNotCached(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	cache, _ := newTestCache(t, users, 5*time.Second, 16)

	_, err := cache.Resolve(ctx, "garbage-token")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	require.Zero(t, cache.Len())
}

func TestSessionCache_DeletedUserRejected(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers() // token subject has no record
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = cache.Resolve(ctx, raw)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionCache_SweepBoundsSize(t *testing.T) {
	ctx := context.Background()

	const maxSize = 8
	var seed []domain.User
	for i := 0; i < maxSize*2; i++ {
		seed = append(seed, testUser(t, fmt.Sprintf("01JBUSER%04d", i), fmt.Sprintf("u%d@example.com", i), "Sup3rSecret!", true))
	}
	users := newFakeUsers(seed...)
	cache, tokens := newTestCache(t, users, time.Minute, maxSize)

	for _, u := range seed {
		raw, err := tokens.IssueAccessToken(u)
		require.NoError(t, err)
		_, err = cache.Resolve(ctx, raw)
		require.NoError(t, err)
	}

	require.LessOrEqual(t, cache.Len(), maxSize)
}

func TestSessionCache_SweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "01JBUSER0001", "alice@example.com", "Sup3rSecret!", true)
	users := newFakeUsers(user)
	cache, tokens := newTestCache(t, users, 5*time.Second, 16)

	now := time.Now()
	cache.Now = func() time.Time { return now }

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	_, err = cache.Resolve(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	now = now.Add(6 * time.Second)
	cache.Sweep()
	require.Zero(t, cache.Len())
}

func TestRequireRole(t *testing.T) {
	recruiter := domain.Identity{ID: "r", Role: domain.RoleRecruiter, Active: true}
	admin := domain.Identity{ID: "a", Role: domain.RoleAdmin, Active: true}
	user := domain.Identity{ID: "u", Role: domain.RoleUser, Active: true}

	_, err := RequireRole(recruiter, domain.RoleRecruiter)
	require.NoError(t, err)

	// Admin passes any role gate.
	_, err = RequireRole(admin, domain.RoleRecruiter)
	require.NoError(t, err)

	_, err = RequireRole(user, domain.RoleRecruiter)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
