// Package session implements the transaction-session registry (spec §4.1
// Sessions, C4), grounded on original_source/src/sessions.rs's SessionManager
// but rebuilt around sync.Mutex-guarded maps the way the service_layer
// teacher guards its in-process registries, since Go has no DashMap
// equivalent in the reused dependency stack.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
)

// Session is one open transaction handle: an opaque id bound to a database
// name and an engine-side Session, with exclusive single-owner access
// enforced by Lock/Unlock.
type Session struct {
	ID       string
	Database string
	Engine   any // engine.Session, typed any to avoid an import cycle with callers that embed this
	mu       sync.Mutex

	createdAt  time.Time
	lastUsedAt time.Time
	ttl        time.Duration
}

// Lock acquires this session's exclusive lock. Only one caller may hold a
// transaction's engine handle at a time (spec §4.1 invariant).
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases this session's exclusive lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// expired reports whether this session's TTL has elapsed since last use.
func (s *Session) expired(now time.Time) bool {
	return now.After(s.lastUsedAt.Add(s.ttl))
}

// touch extends the session's TTL window from now.
func (s *Session) touch(now time.Time) {
	s.lastUsedAt = now
}

// Registry is the process-wide session table.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewRegistry constructs an empty Registry with the given default session
// TTL.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create registers a new session bound to database, wrapping the given
// engine-side session, and returns its opaque v4-UUID handle.
func (r *Registry) Create(database string, engineSession any) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		Database:   database,
		Engine:     engineSession,
		createdAt:  now,
		lastUsedAt: now,
		ttl:        r.ttl,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get resolves a session handle, touching its TTL window on success and
// returning apierr.SessionNotFound when the handle is unknown or expired.
func (r *Registry) Get(id string) (*Session, error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, apierr.SessionNotFound()
	}
	if s.expired(now) {
		delete(r.sessions, id)
		return nil, apierr.SessionNotFound()
	}
	s.touch(now)
	return s, nil
}

// Remove drops a session handle unconditionally. Removing an unknown
// handle is not an error: callers use Remove for both explicit
// commit/rollback cleanup and best-effort teardown.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// RemoveByDatabase drops every session bound to the named database, used
// when a database is deleted out from under its open transactions.
func (r *Registry) RemoveByDatabase(database string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Database == database {
			delete(r.sessions, id)
		}
	}
}

// CleanupExpired removes every session whose TTL has elapsed, returning the
// handles it removed so callers can release their underlying engine
// resources.
func (r *Registry) CleanupExpired() []*Session {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, s := range r.sessions {
		if s.expired(now) {
			removed = append(removed, s)
			delete(r.sessions, id)
		}
	}
	return removed
}

// Exists reports whether id currently names a live, unexpired session.
func (r *Registry) Exists(id string) bool {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return ok && !s.expired(now)
}

// ActiveCount returns the number of sessions currently registered,
// expired or not (expiry is reconciled lazily on Get/CleanupExpired, the
// same way the reference engine's SessionManager defers pruning).
func (r *Registry) ActiveCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.sessions))
}
