package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
)

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry(time.Minute)
	s := r.Create("default", "engine-handle")
	require.NotEmpty(t, s.ID)

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", got.Database)
	assert.Equal(t, "engine-handle", got.Engine)
}

func TestGetUnknownIDReturnsSessionNotFound(t *testing.T) {
	r := NewRegistry(time.Minute)
	_, err := r.Get("does-not-exist")
	se, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindSessionNotFound, se.Kind)
}

func TestGetExpiredSessionIsRemoved(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	s := r.Create("default", nil)

	time.Sleep(20 * time.Millisecond)
	_, err := r.Get(s.ID)
	assert.Error(t, err)
	assert.False(t, r.Exists(s.ID))
}

func TestGetTouchesTTLWindow(t *testing.T) {
	r := NewRegistry(30 * time.Millisecond)
	s := r.Create("default", nil)

	time.Sleep(20 * time.Millisecond)
	_, err := r.Get(s.ID) // touches, resetting the 30ms window
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = r.Get(s.ID) // 20ms since the touch, still alive
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	r := NewRegistry(time.Minute)
	s := r.Create("default", nil)
	r.Remove(s.ID)
	assert.False(t, r.Exists(s.ID))
	r.Remove("unknown-id") // must not panic or error
}

func TestRemoveByDatabase(t *testing.T) {
	r := NewRegistry(time.Minute)
	a := r.Create("db-a", nil)
	b := r.Create("db-b", nil)

	r.RemoveByDatabase("db-a")
	assert.False(t, r.Exists(a.ID))
	assert.True(t, r.Exists(b.ID))
}

func TestCleanupExpiredReturnsRemovedSessions(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	s := r.Create("default", nil)
	time.Sleep(20 * time.Millisecond)

	removed := r.CleanupExpired()
	require.Len(t, removed, 1)
	assert.Equal(t, s.ID, removed[0].ID)
	assert.Equal(t, uint64(0), r.ActiveCount())
}

func TestLockUnlockSerializesAccess(t *testing.T) {
	r := NewRegistry(time.Minute)
	s := r.Create("default", nil)

	s.Lock()
	done := make(chan struct{})
	go func() {
		s.Lock()
		close(done)
		s.Unlock()
	}()

	select {
	case <-done:
		t.Fatal("second Lock should not succeed while the first is held")
	case <-time.After(20 * time.Millisecond):
	}
	s.Unlock()
	<-done
}
