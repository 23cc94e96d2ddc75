package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Nertsal/trail-blazer/internal/config"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// RateLimitConfigFrom derives the HTTP limiter settings from the resource limits.
func RateLimitConfigFrom(limits config.ResourceLimits) RateLimitConfig {
	cfg := DefaultRateLimitConfig
	if limits.HTTPRequestsPerSec > 0 {
		cfg.RequestsPerSecond = limits.HTTPRequestsPerSec
	}
	if limits.HTTPBurst > 0 {
		cfg.Burst = limits.HTTPBurst
	}
	return cfg
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount atomic.Uint64
	allowedCount  atomic.Uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter and starts its
// cleanup goroutine. Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine to prevent memory leak from abandoned IPs
	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// getLimiter returns or creates a rate limiter for the given IP
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

// cleanupLoop periodically removes stale rate limiters
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-rl.config.CleanupInterval * 2))
		}
	}
}

// cleanup removes rate limiters not used since cutoff
func (rl *IPRateLimiter) cleanup(cutoff time.Time) {
	rl.limiters.Range(func(key, value interface{}) bool {
		entry := value.(*ipLimiterEntry)
		if entry.lastSeen.Load() < cutoff.UnixNano() {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowedCount.Add(1)
		return true
	}
	rl.rejectedCount.Add(1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns rate limiter statistics
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowedCount.Load(),
		"rejected": rl.rejectedCount.Load(),
	}
}

// GetClientIP extracts the client IP from an HTTP request.
// Handles X-Forwarded-For header for proxied requests.
func GetClientIP(r *http.Request) string {
	// CAUTION: This can be spoofed if not behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ConnectionLimiter caps concurrent websocket connections, in total and per IP.
type ConnectionLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxTotal int
	maxPerIP int

	rejectedCount atomic.Uint64
}

// NewConnectionLimiter creates a websocket connection limiter
func NewConnectionLimiter(maxTotal, maxPerIP int) *ConnectionLimiter {
	return &ConnectionLimiter{
		perIP:    make(map[string]int),
		maxTotal: maxTotal,
		maxPerIP: maxPerIP,
	}
}

// Acquire reserves a connection slot for ip. The returned reason is a
// bounded metric label, empty on success.
func (cl *ConnectionLimiter) Acquire(ip string) (bool, string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.total >= cl.maxTotal {
		cl.rejectedCount.Add(1)
		return false, "ws_total_limit"
	}
	if cl.perIP[ip] >= cl.maxPerIP {
		cl.rejectedCount.Add(1)
		return false, "ws_ip_limit"
	}
	cl.total++
	cl.perIP[ip]++
	return true, ""
}

// Release frees a slot reserved by Acquire
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.perIP[ip] == 0 {
		return
	}
	cl.total--
	cl.perIP[ip]--
	if cl.perIP[ip] == 0 {
		delete(cl.perIP, ip)
	}
}

// Active returns the number of reserved slots
func (cl *ConnectionLimiter) Active() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.total
}

// ActiveFor returns current connection count for an IP
func (cl *ConnectionLimiter) ActiveFor(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.perIP[ip]
}

// OriginChecker matches request origins against an allow-list.
// "*" allows everything; an entry like "https://*.example.com" allows
// any subdomain.
type OriginChecker struct {
	allowAll bool
	exact    map[string]bool
	wildcard []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string // including "://"
	suffix string // including the leading dot
}

// NewOriginChecker builds a checker from the configured origins
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{exact: make(map[string]bool)}
	for _, o := range origins {
		switch {
		case o == "*":
			oc.allowAll = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*.")
			oc.wildcard = append(oc.wildcard, wildcardOrigin{scheme: scheme + "://", suffix: "." + host})
		default:
			oc.exact[o] = true
		}
	}
	return oc
}

// Allowed reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" || oc.allowAll || oc.exact[origin] {
		return true
	}
	for _, w := range oc.wildcard {
		if strings.HasPrefix(origin, w.scheme) && strings.HasSuffix(origin, w.suffix) {
			return true
		}
	}
	return false
}
