package counter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrementWithTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.Now = func() time.Time { return now }

	n, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 2, got)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.Now = func() time.Time { return now }

	_, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)

	// Past the TTL the key reads as absent and a fresh increment restarts
	// from zero.
	now = now.Add(2 * time.Minute)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 0, got)

	n, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestMemoryStore_EachIncrementRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.Now = func() time.Time { return now }

	_, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)

	// 90s after the first increment but only 45s after the second, so the
	// refreshed TTL keeps the key alive.
	now = now.Add(45 * time.Second)
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 2, got)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 0, got)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "missing"))
}

func TestMemoryStore_SlideWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	s := NewMemoryStore()

	stat, err := s.SlideWindow(ctx, "k", base, window)
	require.NoError(t, err)
	require.EqualValues(t, 1, stat.Count)
	require.True(t, stat.Oldest.IsZero(), "single-event window reports no oldest")

	stat, err = s.SlideWindow(ctx, "k", base.Add(10*time.Second), window)
	require.NoError(t, err)
	require.EqualValues(t, 2, stat.Count)
	require.Equal(t, base, stat.Oldest)

	// Once the first event ages out it no longer counts and the oldest
	// surviving event moves forward.
	stat, err = s.SlideWindow(ctx, "k", base.Add(65*time.Second), window)
	require.NoError(t, err)
	require.EqualValues(t, 2, stat.Count)
	require.Equal(t, base.Add(10*time.Second), stat.Oldest)
}

func TestMemoryStore_SlideWindow_IsolatedKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()

	_, err := s.SlideWindow(ctx, "a", now, time.Minute)
	require.NoError(t, err)

	stat, err := s.SlideWindow(ctx, "b", now, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, stat.Count)
}
