package announceservice

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle tenant entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type tenantEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TenantRateLimiter gives each tenant its own token bucket and prunes stale
// entries inline.
type TenantRateLimiter struct {
	tenants map[string]*tenantEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewTenantRateLimiter creates a limiter allowing perMinute announcements per
// tenant with the given burst.
func NewTenantRateLimiter(perMinute float64, burst int) *TenantRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TenantRateLimiter{
		tenants: make(map[string]*tenantEntry),
		r:       rate.Limit(perMinute / 60),
		b:       burst,
		now:     time.Now,
	}
}

// GetLimiter returns the limiter for tenantID, pruning stale entries when the
// map exceeds cleanupThreshold.
func (l *TenantRateLimiter) GetLimiter(tenantID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.tenants) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.tenants {
			if e.lastSeen.Before(cutoff) {
				delete(l.tenants, k)
			}
		}
	}

	e, exists := l.tenants[tenantID]
	if !exists {
		e = &tenantEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.tenants[tenantID] = e
	}
	e.lastSeen = now

	return e.limiter
}

// Allow reports whether tenantID may announce now.
func (l *TenantRateLimiter) Allow(tenantID string) bool {
	return l.GetLimiter(tenantID).AllowN(l.now(), 1)
}

// Len returns the number of tracked tenants.
func (l *TenantRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tenants)
}
