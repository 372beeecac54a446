package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window for a single key. Zero disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc groups requests. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// window holds the counts of the current fixed window and the one before it.
// The effective count interpolates between them.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max   float64
	size  time.Duration
	mu    sync.Mutex
	byKey map[string]*window
	keyOf func(*http.Request) string
	nowFn func() time.Time
}

type decision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = ClientIP
	}
	return &limiter{
		max:   float64(cfg.Max),
		size:  cfg.Window,
		byKey: make(map[string]*window),
		keyOf: keyOf,
		nowFn: time.Now,
	}
}

func (l *limiter) take(key string, now time.Time) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.size)
	w, ok := l.byKey[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.byKey[key] = w
	case start.Sub(w.start) >= 2*l.size:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.curr}
	}

	weight := 1 - float64(now.Sub(w.start))/float64(l.size)
	count := w.prev*weight + w.curr
	d := decision{reset: w.start.Add(l.size)}
	if count >= l.max {
		return d
	}
	w.curr++
	d.allowed = true
	d.remaining = max(0, int(l.max-count-1))
	return d
}

// evict drops keys idle for two full windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.byKey {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.byKey, key)
		}
	}
}

func (l *limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// RateLimit limits requests per key with a sliding window. Rejected requests
// get 429 with a Retry-After header. Idle keys are evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)
	go l.evictLoop(ctx)

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.nowFn()
			d := l.take(l.keyOf(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
			if !d.allowed {
				wait := max(0, d.reset.Sub(now).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
