package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine/memgraph"
	"github.com/GrafeoDB/grafeo-server/internal/metrics"
	"github.com/GrafeoDB/grafeo-server/internal/session"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	sessions := session.NewRegistry(time.Minute)
	databases, err := dbmanager.New("", memgraph.Open, sessions)
	require.NoError(t, err)
	return New(databases, sessions, metrics.NewRegistry(time.Now()), cfg)
}

func TestExecuteAutoCommit(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2})
	_, err := s.Execute(context.Background(), "default", LanguageGQL, `CREATE (n:Person {name:'Alice'}) RETURN n.name`, nil)
	require.NoError(t, err)

	result, err := s.Execute(context.Background(), "default", LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
}

func TestExecuteDisabledLanguageReturnsError(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2, EnabledLanguages: map[Language]bool{LanguageGQL: true}})
	_, err := s.Execute(context.Background(), "default", LanguageCypher, `MATCH (n:Person) RETURN n.name`, nil)
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestExecuteUnknownDatabaseReturnsNotFound(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2})
	_, err := s.Execute(context.Background(), "missing", LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	assert.Error(t, err)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2})

	sess, err := s.BeginTx("default")
	require.NoError(t, err)

	_, err = s.TxExecute(context.Background(), sess.ID, LanguageGQL, `CREATE (n:Person {name:'Bob'}) RETURN n.name`, nil)
	require.NoError(t, err)

	require.NoError(t, s.Commit(sess.ID))

	result, err := s.Execute(context.Background(), "default", LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)

	// the session handle is gone after commit
	_, err = s.TxExecute(context.Background(), sess.ID, LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	assert.Error(t, err)
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2})

	sess, err := s.BeginTx("default")
	require.NoError(t, err)

	_, err = s.TxExecute(context.Background(), sess.ID, LanguageGQL, `CREATE (n:Person {name:'Carl'}) RETURN n.name`, nil)
	require.NoError(t, err)

	require.NoError(t, s.Rollback(sess.ID))

	result, err := s.Execute(context.Background(), "default", LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 0)
}

func TestBatchExecuteRunsEveryStatement(t *testing.T) {
	s := newTestService(t, Config{BlockingPoolSize: 2})

	statements := []Statement{
		{Language: LanguageGQL, Statement: `CREATE (n:Person {name:'A'}) RETURN n.name`},
		{Language: LanguageGQL, Statement: `CREATE (n:Person {name:'B'}) RETURN n.name`},
	}
	results, err := s.BatchExecute(context.Background(), "default", statements)
	require.NoError(t, err)
	require.Len(t, results, 2)

	final, err := s.Execute(context.Background(), "default", LanguageGQL, `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	assert.Len(t, final.Rows, 2)
}
