package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/relay/internal/utils"
)

type RateLimitConfig struct {
	RPS           float64 // sustained requests per second per client IP
	Burst         int
	MaxEntries    int
	SweepInterval time.Duration
	IdleTTL       time.Duration
	TrustProxy    bool // resolve IP from proxy headers when true
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP and forgets idle ones.
type ipLimiter struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newIPLimiter(cfg RateLimitConfig, now time.Time) *ipLimiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	return &ipLimiter{
		cfg:       cfg,
		visitors:  make(map[string]*visitor, 256),
		lastSweep: now,
	}
}

func (l *ipLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.visitors) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}

	v := l.visitors[key]
	if v == nil {
		v = &visitor{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.lim
}

func (l *ipLimiter) sweepLocked(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.cfg.IdleTTL {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// allow consumes one token. When refused it reports how long until the
// next token is available.
func (l *ipLimiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfter time.Duration) {
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(math.Max(0, math.Floor(lim.TokensAt(now)))), 0
}

// RateLimit throttles per client IP with a token bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimitAt(cfg, time.Now)
}

func rateLimitAt(cfg RateLimitConfig, now func() time.Time) func(http.Handler) http.Handler {
	l := newIPLimiter(cfg, now())
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, retry := l.allow(key, now())
			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
