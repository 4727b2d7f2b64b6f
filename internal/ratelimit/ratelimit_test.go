package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, headers map[string]string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestCheckAllowsUpToMaxWithinWindow(t *testing.T) {
	l := New(3, time.Second)
	for i := 0; i < 3; i++ {
		require.True(t, l.Check("client-a"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Check("client-a"), "4th request within the window should be denied")
}

func TestCheckResetsAfterWindowElapses(t *testing.T) {
	l := New(1, 30*time.Millisecond)
	require.True(t, l.Check("client-a"))
	assert.False(t, l.Check("client-a"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, l.Check("client-a"), "a new window should reset the count")
}

func TestCheckIsPerClient(t *testing.T) {
	l := New(1, time.Second)
	require.True(t, l.Check("client-a"))
	assert.True(t, l.Check("client-b"), "a different client key has its own independent window")
}

func TestDisabledWhenMaxRequestsIsZero(t *testing.T) {
	l := New(0, time.Second)
	assert.False(t, l.IsEnabled())
	assert.True(t, l.Check("client-a"), "a disabled limiter always allows")
}

func TestCleanupDropsExpiredWindows(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	l.Check("client-a")
	require.Equal(t, 1, l.Count())

	time.Sleep(30 * time.Millisecond)
	l.Cleanup()
	assert.Equal(t, 0, l.Count())
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	r := newRequest(t, map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})
	assert.Equal(t, "203.0.113.9", ClientKey(r))
}

func TestClientKeyFallsBackToRealIP(t *testing.T) {
	r := newRequest(t, map[string]string{"X-Real-IP": "198.51.100.2"})
	assert.Equal(t, "198.51.100.2", ClientKey(r))
}
