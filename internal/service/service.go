// Package service assembles the process-wide root state: one database
// manager, one session registry, one metrics registry, one rate limiter,
// one auth provider, shared by every transport adapter (spec §9 "Global
// mutable state confined to the process-wide service handle"), grounded
// on original_source/src/state.rs and crates/grafeo-http/src/state.rs's
// AppState/ServiceState, including their pattern of exposing dedicated
// in-memory constructors for tests.
package service

import (
	"time"

	"github.com/GrafeoDB/grafeo-server/internal/admin"
	"github.com/GrafeoDB/grafeo-server/internal/auth"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/engine/memgraph"
	"github.com/GrafeoDB/grafeo-server/internal/logging"
	"github.com/GrafeoDB/grafeo-server/internal/metrics"
	"github.com/GrafeoDB/grafeo-server/internal/query"
	"github.com/GrafeoDB/grafeo-server/internal/ratelimit"
	"github.com/GrafeoDB/grafeo-server/internal/search"
	"github.com/GrafeoDB/grafeo-server/internal/session"
)

// State is the process-wide root: every component any transport adapter
// needs, wired once at startup.
type State struct {
	Databases *dbmanager.Manager
	Sessions  *session.Registry
	Metrics   *metrics.Registry
	RateLimit *ratelimit.Limiter
	Auth      *auth.Provider
	Query     *query.Service
	Admin     *admin.Service
	Search    *search.Service

	CORSOrigins []string
	StartedAt   time.Time
}

// Options configures New.
type Options struct {
	DataDir          string
	EngineFactory    engine.Factory
	SessionTTL       time.Duration
	QueryTimeout     time.Duration
	BlockingPoolSize int
	EnabledLanguages map[query.Language]bool

	RateLimitRequests int
	RateLimitWindow   time.Duration

	AuthToken    string
	AuthUser     string
	AuthPassword string

	CORSOrigins []string

	// Logger receives best-effort warnings from components that must not
	// fail their caller on a logged condition (e.g. dbmanager.Delete's
	// close/cleanup errors). Nil is safe: every such call site nil-checks
	// it first.
	Logger *logging.Logger
}

// New assembles a full State from Options, opening (or creating) the
// reserved default database via the configured engine factory.
func New(opts Options) (*State, error) {
	factory := opts.EngineFactory
	if factory == nil {
		factory = memgraph.Open
	}

	sessions := session.NewRegistry(opts.SessionTTL)

	databases, err := dbmanager.New(opts.DataDir, factory, sessions)
	if err != nil {
		return nil, err
	}
	databases.SetLogger(opts.Logger)

	metricsRegistry := metrics.NewRegistry(time.Now())

	queryService := query.New(databases, sessions, metricsRegistry, query.Config{
		QueryTimeout:     opts.QueryTimeout,
		BlockingPoolSize: opts.BlockingPoolSize,
		EnabledLanguages: opts.EnabledLanguages,
	})

	return &State{
		Databases:   databases,
		Sessions:    sessions,
		Metrics:     metricsRegistry,
		RateLimit:   ratelimit.New(opts.RateLimitRequests, opts.RateLimitWindow),
		Auth:        auth.New(opts.AuthToken, opts.AuthUser, opts.AuthPassword),
		Query:       queryService,
		Admin:       admin.New(databases),
		Search:      search.New(databases),
		CORSOrigins: opts.CORSOrigins,
		StartedAt:   time.Now(),
	}, nil
}

// NewInMemory builds a State backed by the in-memory reference engine with
// no auth, no rate limiting, and CORS wide open — the baseline test
// fixture used throughout the transport adapters' test suites.
func NewInMemory() (*State, error) {
	return New(Options{
		SessionTTL:       5 * time.Minute,
		QueryTimeout:     30 * time.Second,
		BlockingPoolSize: 8,
		CORSOrigins:      []string{"*"},
	})
}

// NewInMemoryWithAuth builds a State identical to NewInMemory but with a
// static bearer token configured, for auth-matrix tests.
func NewInMemoryWithAuth(token string) (*State, error) {
	return New(Options{
		SessionTTL:       5 * time.Minute,
		QueryTimeout:     30 * time.Second,
		BlockingPoolSize: 8,
		CORSOrigins:      []string{"*"},
		AuthToken:        token,
	})
}

// NewInMemoryWithBasicAuth builds a State with static basic-auth
// credentials configured.
func NewInMemoryWithBasicAuth(user, password string) (*State, error) {
	return New(Options{
		SessionTTL:       5 * time.Minute,
		QueryTimeout:     30 * time.Second,
		BlockingPoolSize: 8,
		CORSOrigins:      []string{"*"},
		AuthUser:         user,
		AuthPassword:     password,
	})
}

// NewInMemoryWithRateLimit builds a State with the given fixed-window rate
// limit configured.
func NewInMemoryWithRateLimit(maxRequests int, window time.Duration) (*State, error) {
	return New(Options{
		SessionTTL:        5 * time.Minute,
		QueryTimeout:      30 * time.Second,
		BlockingPoolSize:  8,
		CORSOrigins:       []string{"*"},
		RateLimitRequests: maxRequests,
		RateLimitWindow:   window,
	})
}

// DatabaseCount implements metrics.GaugeSource.
func (s *State) DatabaseCount() uint64 { return s.Databases.Count() }

// TotalNodeCount implements metrics.GaugeSource.
func (s *State) TotalNodeCount() uint64 { return s.Databases.TotalNodeCount() }

// TotalEdgeCount implements metrics.GaugeSource.
func (s *State) TotalEdgeCount() uint64 { return s.Databases.TotalEdgeCount() }

// ActiveSessionCount implements metrics.GaugeSource.
func (s *State) ActiveSessionCount() uint64 { return s.Sessions.ActiveCount() }

// CleanupExpired runs the periodic housekeeping sweep (spec §5: "one
// periodic task runs every 60 seconds"): expired session cleanup and
// rate-limit bucket eviction.
func (s *State) CleanupExpired() {
	s.Sessions.CleanupExpired()
	s.RateLimit.Cleanup()
}
