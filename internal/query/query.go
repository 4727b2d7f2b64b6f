// Package query implements the query dispatch service (spec §4.3, C7):
// language dispatch, the blocking-to-async bridge over the synchronous
// engine API, and transaction lifecycle (begin/commit/rollback/batch),
// grounded on
// original_source/crates/grafeo-service/src/query.rs::{QueryService,
// dispatch_query, run_with_timeout}.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/metrics"
	"github.com/GrafeoDB/grafeo-server/internal/session"
)

// Language is the closed set of six query languages the service can
// dispatch to (spec §3). Reused from internal/metrics so the metrics
// registry and the dispatcher agree on one label set without converting
// between two equivalent enums.
type Language = metrics.Language

const (
	LanguageGQL     = metrics.LanguageGQL
	LanguageCypher  = metrics.LanguageCypher
	LanguageGraphQL = metrics.LanguageGraphQL
	LanguageGremlin = metrics.LanguageGremlin
	LanguageSPARQL  = metrics.LanguageSPARQL
	LanguageSQLPGQ  = metrics.LanguageSQLPGQ
)

// Service dispatches queries across the six supported languages, bridging
// the engine's synchronous Session API onto a bounded pool of blocking
// goroutines so the calling transport's own goroutine never blocks past
// the configured query timeout (spec §9 "Blocking-to-async bridge").
type Service struct {
	databases *dbmanager.Manager
	sessions  *session.Registry
	metrics   *metrics.Registry

	queryTimeout time.Duration
	blockingPool chan struct{}
	enabled      map[Language]bool
}

// Config configures a new Service.
type Config struct {
	QueryTimeout     time.Duration // 0 disables the timeout
	BlockingPoolSize int
	EnabledLanguages map[Language]bool // nil enables every language
}

// New constructs a Service.
func New(databases *dbmanager.Manager, sessions *session.Registry, metricsRegistry *metrics.Registry, cfg Config) *Service {
	enabled := cfg.EnabledLanguages
	if enabled == nil {
		enabled = map[Language]bool{}
		for _, l := range metrics.AllLanguages {
			enabled[l] = true
		}
	}
	poolSize := cfg.BlockingPoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	return &Service{
		databases:    databases,
		sessions:     sessions,
		metrics:      metricsRegistry,
		queryTimeout: cfg.QueryTimeout,
		blockingPool: make(chan struct{}, poolSize),
		enabled:      enabled,
	}
}

func (s *Service) checkEnabled(lang Language) error {
	if !s.enabled[lang] {
		return apierr.BadRequestf("%s support not enabled", lang.Label())
	}
	return nil
}

// Execute runs one auto-commit statement against database (spec §4.3
// "execute"): a fresh engine session is opened, the statement runs, and no
// session handle is returned to the caller.
func (s *Service) Execute(ctx context.Context, database string, lang Language, statement string, params engine.Params) (engine.QueryResult, error) {
	if err := s.checkEnabled(lang); err != nil {
		return engine.QueryResult{}, err
	}

	handle, err := s.databases.Get(database)
	if err != nil {
		return engine.QueryResult{}, err
	}

	engineSession := handle.Session()
	start := time.Now()
	result, err := s.runWithTimeout(ctx, func() (engine.QueryResult, error) {
		return dispatch(engineSession, lang, statement, params)
	})
	s.recordOutcome(lang, time.Since(start), err)
	return result, err
}

// BeginTx opens a new transaction session bound to database and returns
// its opaque handle (spec §4.1 Sessions / §4.3 "begin_tx").
func (s *Service) BeginTx(database string) (*session.Session, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}
	engineSession := handle.Session()
	if err := engineSession.BeginTx(); err != nil {
		return nil, apierr.Internal("beginning transaction", err)
	}
	return s.sessions.Create(database, engineSession), nil
}

// TxExecute runs one statement within the transaction identified by
// sessionID (spec §4.3 "tx_execute").
func (s *Service) TxExecute(ctx context.Context, sessionID string, lang Language, statement string, params engine.Params) (engine.QueryResult, error) {
	if err := s.checkEnabled(lang); err != nil {
		return engine.QueryResult{}, err
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return engine.QueryResult{}, err
	}

	sess.Lock()
	defer sess.Unlock()
	engineSession, ok := sess.Engine.(engine.Session)
	if !ok {
		return engine.QueryResult{}, apierr.Internal("session has no bound engine session", nil)
	}

	start := time.Now()
	result, err := s.runWithTimeout(ctx, func() (engine.QueryResult, error) {
		return dispatch(engineSession, lang, statement, params)
	})
	s.recordOutcome(lang, time.Since(start), err)
	return result, err
}

// Commit finalizes the transaction identified by sessionID and removes its
// handle; a subsequent Commit/Rollback on the same handle returns
// apierr.SessionNotFound (spec Testable Property, Idempotence).
func (s *Service) Commit(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	engineSession, ok := sess.Engine.(engine.Session)
	if !ok {
		return apierr.Internal("session has no bound engine session", nil)
	}

	if err := engineSession.Commit(); err != nil {
		// Session-level failures leave the session intact for caller
		// inspection (spec §7 Recovery) rather than removing the handle.
		return apierr.Internal("commit failed", err)
	}
	s.sessions.Remove(sessionID)
	return nil
}

// Rollback aborts the transaction identified by sessionID and removes its
// handle.
func (s *Service) Rollback(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	engineSession, ok := sess.Engine.(engine.Session)
	if !ok {
		return apierr.Internal("session has no bound engine session", nil)
	}

	if err := engineSession.Rollback(); err != nil {
		return apierr.Internal("rollback failed", err)
	}
	s.sessions.Remove(sessionID)
	return nil
}

// Statement is one entry of a batch-execute request.
type Statement struct {
	Language  Language
	Statement string
	Params    engine.Params
}

// BatchExecute runs every statement against database inside one implicit
// transaction, rolling back and returning the first failure (spec §7
// Recovery "Batch failure rolls back the transaction before returning").
// Metrics are recorded only once the whole batch's outcome is known,
// matching run_with_timeout's "metrics recorded only after success/failure
// is known" semantics from the reference engine.
func (s *Service) BatchExecute(ctx context.Context, database string, statements []Statement) ([]engine.QueryResult, error) {
	for _, stmt := range statements {
		if err := s.checkEnabled(stmt.Language); err != nil {
			return nil, err
		}
	}

	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}

	engineSession := handle.Session()
	if err := engineSession.BeginTx(); err != nil {
		return nil, apierr.Internal("beginning batch transaction", err)
	}

	start := time.Now()
	results := make([]engine.QueryResult, 0, len(statements))
	for _, stmt := range statements {
		result, err := s.runWithTimeout(ctx, func() (engine.QueryResult, error) {
			return dispatch(engineSession, stmt.Language, stmt.Statement, stmt.Params)
		})
		if err != nil {
			_ = engineSession.Rollback()
			elapsed := time.Since(start)
			for _, st := range statements {
				s.recordOutcome(st.Language, elapsed, err)
			}
			return nil, err
		}
		results = append(results, result)
	}

	elapsed := time.Since(start)
	if err := engineSession.Commit(); err != nil {
		commitErr := apierr.Internal("batch commit failed", err)
		for _, st := range statements {
			s.recordOutcome(st.Language, elapsed, commitErr)
		}
		return nil, commitErr
	}

	for _, st := range statements {
		s.recordOutcome(st.Language, elapsed, nil)
	}
	return results, nil
}

// runWithTimeout bridges the synchronous engine call onto a bounded pool
// of blocking goroutines, bounding the caller's wait by the configured
// query timeout without cancelling the underlying engine call itself — the
// engine has no cancellation hook, so a timeout only bounds how long the
// caller waits, matching original_source's run_with_timeout.
func (s *Service) runWithTimeout(ctx context.Context, fn func() (engine.QueryResult, error)) (engine.QueryResult, error) {
	select {
	case s.blockingPool <- struct{}{}:
	case <-ctx.Done():
		return engine.QueryResult{}, apierr.Timeout()
	}
	defer func() { <-s.blockingPool }()

	type outcome struct {
		result engine.QueryResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := fn()
		done <- outcome{result, err}
	}()

	if s.queryTimeout <= 0 {
		out := <-done
		return out.result, wrapEngineError(out.err)
	}

	timer := time.NewTimer(s.queryTimeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.result, wrapEngineError(out.err)
	case <-timer.C:
		return engine.QueryResult{}, apierr.Timeout()
	case <-ctx.Done():
		return engine.QueryResult{}, apierr.Timeout()
	}
}

// wrapEngineError wraps a raw engine error as apierr.BadRequest (a bad
// query) unless it is already a *apierr.ServiceError, per spec §7
// "Engine-returned errors are wrapped as bad_request when they represent a
// bad query, internal otherwise." The reference engine only ever returns
// statement-shape errors, so bad_request is the correct default here.
func wrapEngineError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierr.As(err); ok {
		return err
	}
	return apierr.BadRequestf("query failed: %v", err)
}

func (s *Service) recordOutcome(lang Language, elapsed time.Duration, err error) {
	if err != nil {
		s.metrics.RecordQueryError(lang)
		return
	}
	s.metrics.RecordQuery(lang, elapsed)
}

// dispatch routes a statement to the engine session method matching lang
// (spec §9: the language dispatcher is a closed tagged-variant switch, not
// reflection).
func dispatch(s engine.Session, lang Language, statement string, params engine.Params) (engine.QueryResult, error) {
	ctx := context.Background()
	switch lang {
	case LanguageGQL:
		return s.ExecuteGQL(ctx, statement, params)
	case LanguageCypher:
		return s.ExecuteCypher(ctx, statement, params)
	case LanguageGraphQL:
		return s.ExecuteGraphQL(ctx, statement, params)
	case LanguageGremlin:
		return s.ExecuteGremlin(ctx, statement, params)
	case LanguageSPARQL:
		return s.ExecuteSPARQL(ctx, statement, params)
	case LanguageSQLPGQ:
		return s.ExecuteSQLPGQ(ctx, statement, params)
	default:
		return engine.QueryResult{}, fmt.Errorf("unknown language %v", lang)
	}
}
