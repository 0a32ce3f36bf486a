package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/proofile/authcore/pkg/slogx"
)

// BurstConfig shapes the in-process burst guard sitting in front of the
// cross-process sliding-window limiter. It smooths hot loops from a single
// client before they ever cost a counter-store round trip.
type BurstConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// StrictBurst suits credential endpoints.
var StrictBurst = BurstConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

type burstGuard struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (g *burstGuard) limiter(key string) *rate.Limiter {
	if l, ok := g.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	l, _ := g.limiters.LoadOrStore(key, rate.NewLimiter(g.rate, g.burst))
	g.maybeCleanup()
	return l.(*rate.Limiter)
}

// maybeCleanup drops limiters whose token buckets are full again; a full
// bucket means the key has been idle for at least a window.
func (g *burstGuard) maybeCleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.lastCleanup) < 5*time.Minute {
		return
	}
	g.lastCleanup = time.Now()

	g.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(g.burst) {
			g.limiters.Delete(key)
		}
		return true
	})
}

// BurstGuard returns a middleware rejecting per-IP bursts above the config.
func BurstGuard(cfg BurstConfig) Middleware {
	g := &burstGuard{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			l := g.limiter(key)
			if !l.Allow() {
				res := l.Reserve()
				delay := res.Delay()
				res.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				slogx.FromContext(r.Context()).Warn("burst guard tripped",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
