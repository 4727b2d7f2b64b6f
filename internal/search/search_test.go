package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine/memgraph"
)

func newTestSearch(t *testing.T) (*Service, *dbmanager.Manager) {
	t.Helper()
	databases, err := dbmanager.New("", memgraph.Open, nil)
	require.NoError(t, err)
	return New(databases), databases
}

func seedDoc(t *testing.T, databases *dbmanager.Manager, name string) {
	t.Helper()
	handle, err := databases.Get(dbmanager.DefaultDatabase)
	require.NoError(t, err)
	sess := handle.Session()
	_, err = sess.ExecuteGQL(context.Background(), `CREATE (n:Doc {name:'`+name+`'}) RETURN n.name`, nil)
	require.NoError(t, err)
}

func TestVectorRequiresPositiveK(t *testing.T) {
	s, _ := newTestSearch(t)
	_, err := s.Vector(dbmanager.DefaultDatabase, "Doc", "embedding", []float32{1, 0}, 0)
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestVectorUnknownDatabase(t *testing.T) {
	s, _ := newTestSearch(t)
	_, err := s.Vector("missing", "Doc", "embedding", []float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestTextSearchFindsMatch(t *testing.T) {
	s, databases := newTestSearch(t)
	seedDoc(t, databases, "hello world")

	hits, err := s.Text(dbmanager.DefaultDatabase, "Doc", "name", "hello", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestHybridRequiresPositiveK(t *testing.T) {
	s, _ := newTestSearch(t)
	_, err := s.Hybrid(dbmanager.DefaultDatabase, "Doc", "name", "hello", []float32{1, 0}, -1)
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}
