// Package ratelimit implements the fixed-window request limiter (spec §4.6,
// C3).
//
// This is hand-rolled against the reference engine's rate_limit module
// rather than built on golang.org/x/time/rate: x/time/rate implements a
// token bucket, which refills continuously and therefore never produces the
// hard once-per-window reset spec's Testable Property 5 requires ("a client
// at the limit is allowed again at the window boundary, not gradually
// before it"). See DESIGN.md for the full dependency-drop justification.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// window tracks one client's count within the current fixed window.
type window struct {
	count     uint32
	windowEnd time.Time
}

// Limiter is a per-client fixed-window request counter. A Limiter with
// maxRequests <= 0 is disabled: Check always allows.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	counters map[string]*window
}

// New constructs a Limiter allowing maxRequests per window per client key.
// maxRequests <= 0 disables limiting entirely (IsEnabled reports false).
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		counters:    make(map[string]*window),
	}
}

// IsEnabled reports whether this Limiter enforces a limit at all.
func (l *Limiter) IsEnabled() bool {
	return l.maxRequests > 0
}

// Check records one request from key and reports whether it is allowed.
// Fixed-window semantics: if the current window for key has expired, it
// resets to count=1 and allows; otherwise it increments and allows only if
// the new count is within maxRequests.
func (l *Limiter) Check(key string) bool {
	if !l.IsEnabled() {
		return true
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.counters[key]
	if !ok || now.After(w.windowEnd) {
		l.counters[key] = &window{count: 1, windowEnd: now.Add(l.window)}
		return true
	}

	if int(w.count) < l.maxRequests {
		w.count++
		return true
	}
	return false
}

// Cleanup removes counters for windows that have fully elapsed, bounding
// memory use under long-running, high-cardinality client traffic.
func (l *Limiter) Cleanup() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.counters {
		if now.After(w.windowEnd) {
			delete(l.counters, key)
		}
	}
}

// Count reports the number of distinct client keys currently tracked.
// Exposed for admin/metrics visibility and tests.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// ClientKey derives the rate-limit identity for an HTTP request: the first
// token of X-Forwarded-For if present, else X-Real-IP if present, else the
// request's remote socket address (spec §4.6). Unlike the teacher's httputil.ClientIP, this never
// gates on whether the direct peer is private — the spec's limiter sits
// behind a trusted proxy by assumption and always prefers the forwarded
// value when present.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
