// Package ratelimit implements fixed-window request counting across
// admission scopes (global, per-IP, per-endpoint, login attempts).
//
// Fixed windows admit up to 2x the limit across a window boundary; that
// approximation is accepted in exchange for O(1) counting per call.
package ratelimit

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/argussec/argus/internal/metrics"
)

// Well-known scope names.
const (
	ScopeGlobal   = "global"
	ScopeIP       = "ip"
	ScopeEndpoint = "endpoint"
	ScopeLogin    = "login"
)

const shardCount = 32

// Policy is the limit for one scope.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result reports the outcome of a multi-scope admission check.
type Result struct {
	Allowed   bool
	Scope     string // first scope that rejected, empty when allowed
	Remaining int
	ResetAt   time.Time
}

type bucket struct {
	windowStart time.Time
	count       int
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Limiter counts requests in fixed windows. All methods are safe for
// concurrent use; counting for one (scope, key, window) bucket is
// serialized under its shard lock so parallel callers never over-admit.
type Limiter struct {
	mu       sync.RWMutex
	policies map[string]Policy

	emergency       bool
	emergencyFactor int
	emergencyFloor  int
	emergencyTimer  *time.Timer

	shards [shardCount]*shard

	// now is swappable for tests.
	now func() time.Time
}

// New builds a limiter over the given scope policies. factor and floor
// control emergency throttling (limit/factor, never below floor).
func New(policies map[string]Policy, factor, floor int) *Limiter {
	l := &Limiter{
		policies:        make(map[string]Policy, len(policies)),
		emergencyFactor: factor,
		emergencyFloor:  floor,
		now:             time.Now,
	}
	for scope, p := range policies {
		l.policies[scope] = p
	}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	return l
}

// Allow counts one request against the (scope, key) bucket for the given
// limit and window and reports whether it fits. The attempt is recorded
// even when rejected so sustained abuse keeps being counted.
func (l *Limiter) Allow(scope, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time) {
	now := l.now()
	limit = l.effectiveLimit(limit)

	bucketKey := fmt.Sprintf("%s:%s:%d", scope, key, now.UnixNano()/int64(window))
	sh := l.shardFor(bucketKey)

	sh.mu.Lock()
	b, ok := sh.buckets[bucketKey]
	if !ok {
		b = &bucket{windowStart: now.Truncate(window)}
		sh.buckets[bucketKey] = b
	}
	b.count++
	count := b.count
	start := b.windowStart
	sh.mu.Unlock()

	remaining = limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, start.Add(window)
}

// AllowScope applies the configured policy for a named scope.
func (l *Limiter) AllowScope(scope, key string) (bool, int, time.Time) {
	l.mu.RLock()
	p, ok := l.policies[scope]
	l.mu.RUnlock()
	if !ok {
		// Unconfigured scopes do not gate admission.
		return true, 0, l.now()
	}
	return l.Allow(scope, key, p.Limit, p.Window)
}

// AllowRequest runs every scope applicable to one inbound request and
// combines them with AND. Scopes are independent monotone predicates, so
// evaluation order does not change the admit/deny outcome; each scope's
// counter is incremented regardless so abuse never escapes counting.
func (l *Limiter) AllowRequest(ip, endpoint string, login bool) Result {
	checks := []struct {
		scope string
		key   string
	}{
		{ScopeGlobal, "all"},
		{ScopeIP, ip},
		{ScopeEndpoint, endpoint},
	}
	if login {
		checks = append(checks, struct {
			scope string
			key   string
		}{ScopeLogin, ip})
	}

	out := Result{Allowed: true}
	for _, c := range checks {
		ok, remaining, resetAt := l.AllowScope(c.scope, c.key)
		if !ok && out.Allowed {
			out = Result{Allowed: false, Scope: c.scope, Remaining: remaining, ResetAt: resetAt}
		}
	}
	return out
}

// SetEmergency halves every configured limit (floored) until cleared.
// A zero duration means the reduction stays until ClearEmergency.
func (l *Limiter) SetEmergency(resetAfter time.Duration) {
	l.mu.Lock()
	l.emergency = true
	if l.emergencyTimer != nil {
		l.emergencyTimer.Stop()
		l.emergencyTimer = nil
	}
	if resetAfter > 0 {
		l.emergencyTimer = time.AfterFunc(resetAfter, l.ClearEmergency)
	}
	l.mu.Unlock()
	metrics.SetEmergency(true)
}

// ClearEmergency restores the configured limits.
func (l *Limiter) ClearEmergency() {
	l.mu.Lock()
	l.emergency = false
	if l.emergencyTimer != nil {
		l.emergencyTimer.Stop()
		l.emergencyTimer = nil
	}
	l.mu.Unlock()
	metrics.SetEmergency(false)
}

// EmergencyActive reports whether emergency throttling is in effect.
func (l *Limiter) EmergencyActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.emergency
}

// EffectiveLimits returns the currently enforced limit per scope.
func (l *Limiter) EffectiveLimits() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.policies))
	for scope, p := range l.policies {
		limit := p.Limit
		if l.emergency {
			limit = reduced(limit, l.emergencyFactor, l.emergencyFloor)
		}
		out[scope] = limit
	}
	return out
}

// Purge drops buckets whose window ended more than one window ago.
// Run periodically; correctness never depends on it.
func (l *Limiter) Purge() {
	now := l.now()
	maxWindow := time.Duration(0)
	l.mu.RLock()
	for _, p := range l.policies {
		if p.Window > maxWindow {
			maxWindow = p.Window
		}
	}
	l.mu.RUnlock()
	if maxWindow == 0 {
		maxWindow = time.Minute
	}

	for _, sh := range l.shards {
		sh.mu.Lock()
		for k, b := range sh.buckets {
			if now.Sub(b.windowStart) > 2*maxWindow {
				delete(sh.buckets, k)
			}
		}
		sh.mu.Unlock()
	}
}

func (l *Limiter) effectiveLimit(limit int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.emergency {
		return limit
	}
	return reduced(limit, l.emergencyFactor, l.emergencyFloor)
}

func reduced(limit, factor, floor int) int {
	r := limit / factor
	if r < floor {
		r = floor
	}
	return r
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}
