package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig sets the per-IP token bucket
type ThrottleConfig struct {
	// RequestsPerSecond is the sustained rate; zero disables throttling
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an idle client's bucket is kept
	IdleTTL time.Duration
}

// DefaultThrottleConfig returns the default per-IP limits
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{RequestsPerSecond: 20, Burst: 40, IdleTTL: 10 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits request rates per client IP
type Throttle struct {
	config   ThrottleConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
	onLimit  http.HandlerFunc
}

// NewThrottle creates a per-IP throttle. onLimit writes the rejection; nil
// sends a bare 429.
func NewThrottle(config ThrottleConfig, onLimit http.HandlerFunc) *Throttle {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return &Throttle{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
		onLimit:  onLimit,
	}
}

// Allow reports whether ip may make another request now
func (t *Throttle) Allow(ip string) bool {
	if t.config.RequestsPerSecond <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(t.config.RequestsPerSecond), t.config.Burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets clients idle for longer than IdleTTL, returning how many
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.config.IdleTTL)
	removed := 0
	for ip, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, ip)
			removed++
		}
	}
	return removed
}

// Middleware applies the throttle to a handler
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			t.onLimit(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
