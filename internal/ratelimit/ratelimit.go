package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/timrodz/blog/internal/httpmw"
)

const (
	defaultPerSecond   = 10
	defaultBurst       = 30
	defaultTTL         = 5 * time.Minute
	defaultMaxVisitors = 100000
)

// visitor tracks one client's bucket and last activity.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset when the entry is evicted and re-created
	logged bool
}

// IPLimiter holds per-ip token buckets with background eviction.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int

	// idle entries older than ttl are evicted
	ttl time.Duration

	// maxVisitors caps the map; new addresses are denied once it is full.
	// Zero disables the cap.
	maxVisitors int
	atCapacity  bool

	exempt []string

	OnFirstDenied func(ip string)
	OnDenied      func(ip string)
	// OnCapacity fires once each time the map fills up.
	OnCapacity func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and the bucket size.
// WithRate(10, 50) allows 50 requests at once, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithExemptPrefixes lets requests whose path starts with any prefix
// bypass the limiter entirely.
func WithExemptPrefixes(prefixes ...string) Option {
	return func(l *IPLimiter) { l.exempt = append(l.exempt, prefixes...) }
}

// WithOnFirstDenied is called once per visitor, on its first denial. Use it
// for logging; OnDenied fires on every denial and is for counters.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

// New creates an IPLimiter. The eviction goroutine stops when ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   defaultPerSecond,
		burst:       defaultBurst,
		ttl:         defaultTTL,
		maxVisitors: defaultMaxVisitors,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow reports whether ip may proceed, creating its visitor on first sight.
// Hooks run after the lock is released.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			first := !l.atCapacity
			l.atCapacity = true
			l.mu.Unlock()
			if first && l.OnCapacity != nil {
				l.OnCapacity()
			}
			if l.OnDenied != nil {
				l.OnDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()

	firstDenial := !allowed && !v.logged
	if firstDenial {
		v.logged = true
	}
	l.mu.Unlock()

	if allowed {
		return true
	}
	if firstDenial && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return false
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// cleanup evicts idle visitors every ttl/2.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			if l.maxVisitors == 0 || len(l.visitors) < l.maxVisitors {
				l.atCapacity = false
			}
			l.mu.Unlock()
		}
	}
}

// retryAfter is the whole number of seconds until one token refills.
func (l *IPLimiter) retryAfter() string {
	if l.perSecond <= 0 || l.perSecond == rate.Inf {
		return "60"
	}
	secs := int(math.Ceil(1 / float64(l.perSecond)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func (l *IPLimiter) exempted(path string) bool {
	for _, p := range l.exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware rejects requests over the per-ip limit with 429.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", l.retryAfter())
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusTooManyRequests)
			// no detail about limits or remaining budget
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
