package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-address request limits.
type RateLimitConfig struct {
	RequestsPerSecond float64       // sustained rate per client address
	Burst             int           // bucket size
	CleanupInterval   time.Duration // idle buckets are dropped after twice this
}

// DefaultRateLimitConfig allows input polling at a few dozen requests per
// second from one client.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 40,
	Burst:             80,
	CleanupInterval:   5 * time.Minute,
}

// visitor is one client address's token bucket.
type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// IPRateLimiter keeps a token bucket per client address.
type IPRateLimiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	visitors map[string]*visitor

	allowed  atomic.Uint64
	rejected atomic.Uint64

	done     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter starts a limiter and its sweeper. Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	rl := &IPRateLimiter{
		cfg:      cfg,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the sweeper.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *IPRateLimiter) sweep() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

// cleanup forgets addresses idle for two intervals.
func (rl *IPRateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-2 * rl.cfg.CleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if v.seen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *IPRateLimiter) bucket(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.visitors[ip] = v
	}
	v.seen = now
	return v.limiter
}

// Allow takes a token for ip.
func (rl *IPRateLimiter) Allow(ip string) bool {
	_, ok := rl.reserve(ip, time.Now())
	return ok
}

// reserve takes a token if one is available now. Otherwise it returns how
// long until the next one.
func (rl *IPRateLimiter) reserve(ip string, now time.Time) (time.Duration, bool) {
	r := rl.bucket(ip, now).ReserveN(now, 1)
	if !r.OK() {
		rl.rejected.Add(1)
		return time.Second, false
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		rl.rejected.Add(1)
		return wait, false
	}
	rl.allowed.Add(1)
	return 0, true
}

// Middleware answers 429 with Retry-After when a client runs dry.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := rl.reserve(GetClientIP(r), time.Now())
		if !ok {
			RecordConnectionRejected("rate_limit")
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed and rejected request counts.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	rl.mu.Lock()
	clients := len(rl.visitors)
	rl.mu.Unlock()
	return map[string]uint64{
		"allowed":  rl.allowed.Load(),
		"rejected": rl.rejected.Load(),
		"clients":  uint64(clients),
	}
}

// GetClientIP returns the first forwarded address, then X-Real-IP, then
// the peer address. Forwarded headers are only trustworthy behind a proxy
// that sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WebSocketRateLimiter caps open sockets per client address.
type WebSocketRateLimiter struct {
	maxPerIP int

	mu   sync.Mutex
	open map[string]int

	rejected atomic.Uint64
}

// NewWebSocketRateLimiter allows maxPerIP concurrent sockets per address.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP, open: make(map[string]int)}
}

// Allow reserves a socket slot for ip.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	if wrl.open[ip] >= wrl.maxPerIP {
		wrl.rejected.Add(1)
		return false
	}
	wrl.open[ip]++
	return true
}

// Release frees a slot taken by Allow.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	if wrl.open[ip] <= 1 {
		delete(wrl.open, ip)
		return
	}
	wrl.open[ip]--
}

// GetConnectionCount returns the open sockets for ip.
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	return wrl.open[ip]
}

// GetStats returns the rejected socket count.
func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{"rejected": wrl.rejected.Load()}
}

// OriginChecker validates websocket Origin headers against the configured
// CORS origins. Localhost is always allowed; non-browser clients that send
// no Origin are allowed too.
type OriginChecker struct {
	exact    map[string]bool
	suffixes []string // from "https://*.example.com" style entries
}

// NewOriginChecker builds a checker from CORS-style origin patterns.
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{exact: make(map[string]bool)}
	for _, o := range origins {
		if i := strings.Index(o, "*"); i >= 0 {
			oc.suffixes = append(oc.suffixes, o[i+1:])
			continue
		}
		oc.exact[o] = true
	}
	return oc
}

// Allowed reports whether origin may open a websocket.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	if oc.exact[origin] {
		return true
	}
	for _, s := range oc.suffixes {
		if s != "" && strings.HasSuffix(origin, s) {
			return true
		}
	}
	return false
}
