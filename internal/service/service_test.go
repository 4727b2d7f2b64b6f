package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/query"
)

func TestNewInMemoryHasNoAuthOrRateLimit(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)
	assert.False(t, s.Auth.IsEnabled())
	assert.False(t, s.RateLimit.IsEnabled())
	assert.Contains(t, s.Databases.List(), dbmanager.DefaultDatabase)
}

func TestNewInMemoryWithAuthEnablesBearer(t *testing.T) {
	s, err := NewInMemoryWithAuth("secret")
	require.NoError(t, err)
	assert.True(t, s.Auth.IsEnabled())
	assert.True(t, s.Auth.CheckBearer("secret"))
}

func TestNewInMemoryWithBasicAuthEnablesBasic(t *testing.T) {
	s, err := NewInMemoryWithBasicAuth("alice", "hunter2")
	require.NoError(t, err)
	assert.True(t, s.Auth.IsEnabled())
	assert.True(t, s.Auth.CheckBasic("alice", "hunter2"))
}

func TestNewInMemoryWithRateLimitEnablesLimiter(t *testing.T) {
	s, err := NewInMemoryWithRateLimit(2, time.Second)
	require.NoError(t, err)
	assert.True(t, s.RateLimit.IsEnabled())
}

func TestCleanupExpiredDropsExpiredSessions(t *testing.T) {
	s, err := New(Options{
		SessionTTL:       10 * time.Millisecond,
		QueryTimeout:     time.Second,
		BlockingPoolSize: 2,
	})
	require.NoError(t, err)

	sess, err := s.Query.BeginTx(dbmanager.DefaultDatabase)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	time.Sleep(20 * time.Millisecond)
	s.CleanupExpired()

	assert.Equal(t, uint64(0), s.ActiveSessionCount())
}

func TestGaugeAccessorsReflectDatabaseState(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)

	_, err = s.Query.Execute(context.Background(), dbmanager.DefaultDatabase, query.LanguageGQL,
		`CREATE (n:Person {name:'Alice'}) RETURN n.name`, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), s.DatabaseCount())
	assert.Equal(t, uint64(1), s.TotalNodeCount())
}
