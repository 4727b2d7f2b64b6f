package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/engine/memgraph"
)

func newTestAdmin(t *testing.T) *Service {
	t.Helper()
	databases, err := dbmanager.New("", memgraph.Open, nil)
	require.NoError(t, err)
	return New(databases)
}

func TestStatsUnknownDatabase(t *testing.T) {
	s := newTestAdmin(t)
	_, err := s.Stats("missing")
	assert.Error(t, err)
}

func TestStatsKnownDatabase(t *testing.T) {
	s := newTestAdmin(t)
	stats, err := s.Stats(dbmanager.DefaultDatabase)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.NodeCount)
}

func TestCreateIndexRequiresLabelAndProperty(t *testing.T) {
	s := newTestAdmin(t)
	err := s.CreateIndex(dbmanager.DefaultDatabase, engine.IndexDef{})
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestCreateIndexRequiresDimensionsForVectorIndex(t *testing.T) {
	s := newTestAdmin(t)
	err := s.CreateIndex(dbmanager.DefaultDatabase, engine.IndexDef{
		Kind: engine.IndexVector, Label: "Doc", Property: "embedding",
	})
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestCreateThenDropIndexSucceeds(t *testing.T) {
	s := newTestAdmin(t)
	def := engine.IndexDef{Kind: engine.IndexProperty, Label: "Person", Property: "name"}
	require.NoError(t, s.CreateIndex(dbmanager.DefaultDatabase, def))
	require.NoError(t, s.DropIndex(dbmanager.DefaultDatabase, def))
}

func TestCheckpointUnknownDatabase(t *testing.T) {
	s := newTestAdmin(t)
	err := s.Checkpoint("missing")
	assert.Error(t, err)
}

func TestValidateKnownDatabase(t *testing.T) {
	s := newTestAdmin(t)
	_, err := s.Validate(dbmanager.DefaultDatabase)
	assert.NoError(t, err)
}
