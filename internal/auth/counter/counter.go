// Package counter abstracts the shared counter store the login throttle and
// rate limiter coordinate through. Two interchangeable drivers exist: a
// Redis-backed one for multi-process deployments and an in-memory one for
// single-process and test use, selected by configuration.
package counter

import (
	"context"
	"time"
)

// WindowStat is the result of one sliding-window step.
type WindowStat struct {
	// Count is the number of events inside the window, including the one
	// just recorded.
	Count int64

	// Oldest is the timestamp of the oldest surviving event. Zero when the
	// window holds only the current event.
	Oldest time.Time
}

// Store is the cross-process coordination point. Every method that reads and
// writes must do so atomically: two racing processes may never both observe
// themselves under a limit when the combined result is over it.
type Store interface {
	// IncrementWithTTL atomically increments key and refreshes its TTL,
	// returning the new count. Used by the login throttle.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current count for key, 0 when absent.
	Get(ctx context.Context, key string) (int64, error)

	// Delete removes key outright.
	Delete(ctx context.Context, key string) error

	// SlideWindow atomically prunes events older than now - window, records
	// an event at now, refreshes the key's TTL to the window length, and
	// returns the resulting count and oldest surviving event.
	SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (WindowStat, error)
}
