package dbmanager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/engine/memgraph"
)

func newInMemoryManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New("", memgraph.Open, nil)
	require.NoError(t, err)
	return m
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("default"))
	assert.True(t, ValidateName("my-db_1"))
	assert.False(t, ValidateName(""))
	assert.False(t, ValidateName("1db"))
	assert.False(t, ValidateName("has space"))
}

func TestParseDurability(t *testing.T) {
	d, err := ParseDurability("")
	require.NoError(t, err)
	assert.Equal(t, engine.DurabilityAdaptive, d)

	d, err = ParseDurability(string(engine.DurabilitySync))
	require.NoError(t, err)
	assert.Equal(t, engine.DurabilitySync, d)

	_, err = ParseDurability("bogus")
	assert.Error(t, err)
}

func TestNewCreatesDefaultDatabase(t *testing.T) {
	m := newInMemoryManager(t)
	assert.Contains(t, m.List(), DefaultDatabase)
	_, err := m.Get(DefaultDatabase)
	assert.NoError(t, err)
}

func TestCreateRejectsInvalidName(t *testing.T) {
	m := newInMemoryManager(t)
	err := m.Create("1bad", CreateOptions{GraphModel: engine.GraphModelLPG})
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	m := newInMemoryManager(t)
	require.NoError(t, m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG}))

	err := m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG})
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindConflict, se.Kind)
}

func TestCreateRejectsPersistentWithoutDataDir(t *testing.T) {
	m := newInMemoryManager(t)
	err := m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG, Persistent: true})
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestDeleteRemovesDatabase(t *testing.T) {
	m := newInMemoryManager(t)
	require.NoError(t, m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG}))

	require.NoError(t, m.Delete("other"))
	assert.NotContains(t, m.List(), "other")

	_, err := m.Get("other")
	assert.Error(t, err)
}

func TestDeleteRejectsDefaultDatabase(t *testing.T) {
	m := newInMemoryManager(t)
	err := m.Delete(DefaultDatabase)
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBadRequest, se.Kind)
}

func TestDeleteUnknownDatabaseReturnsNotFound(t *testing.T) {
	m := newInMemoryManager(t)
	err := m.Delete("missing")
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindNotFound, se.Kind)
}

type fakeSessionRemover struct {
	removedFor []string
}

func (f *fakeSessionRemover) RemoveByDatabase(database string) {
	f.removedFor = append(f.removedFor, database)
}

func TestDeleteRemovesBoundSessions(t *testing.T) {
	remover := &fakeSessionRemover{}
	m, err := New("", memgraph.Open, remover)
	require.NoError(t, err)
	require.NoError(t, m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG}))

	require.NoError(t, m.Delete("other"))
	assert.Equal(t, []string{"other"}, remover.removedFor)
}

// closeFailingHandle wraps a real handle but fails on Close, simulating an
// engine-level shutdown error.
type closeFailingHandle struct {
	engine.Handle
}

func (closeFailingHandle) Close() error { return errors.New("simulated close failure") }

func TestDeleteSucceedsDespiteCloseFailure(t *testing.T) {
	factory := func(cfg engine.Config) (engine.Handle, error) {
		h, err := memgraph.Open(cfg)
		if err != nil {
			return nil, err
		}
		return closeFailingHandle{h}, nil
	}

	m, err := New("", factory, nil)
	require.NoError(t, err)
	require.NoError(t, m.Create("other", CreateOptions{GraphModel: engine.GraphModelLPG}))

	assert.NoError(t, m.Delete("other"))
	assert.NotContains(t, m.List(), "other")
}
