package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledProviderAllowsEverything(t *testing.T) {
	p := New("", "", "")
	assert.False(t, p.IsEnabled())
	r := httptest.NewRequest(http.MethodGet, "/db", nil)
	assert.True(t, p.CheckRequest(r))
}

func TestCheckBearer(t *testing.T) {
	p := New("secret", "", "")
	assert.True(t, p.IsEnabled())
	assert.True(t, p.CheckBearer("secret"))
	assert.False(t, p.CheckBearer("wrong"))
	assert.False(t, p.CheckBearer(""))
}

func TestCheckBasic(t *testing.T) {
	p := New("", "alice", "hunter2")
	assert.True(t, p.IsEnabled())
	assert.True(t, p.CheckBasic("alice", "hunter2"))
	assert.False(t, p.CheckBasic("alice", "wrong"))
	assert.False(t, p.CheckBasic("bob", "hunter2"))
}

func TestCheckBasicRequiresBothUserAndPassConfigured(t *testing.T) {
	p := New("", "alice", "")
	assert.False(t, p.IsEnabled())
	assert.False(t, p.CheckBasic("alice", ""))
}

func TestCheckRequestBearerHeader(t *testing.T) {
	p := New("secret", "", "")
	r := httptest.NewRequest(http.MethodGet, "/db", nil)
	r.Header.Set("Authorization", "Bearer secret")
	assert.True(t, p.CheckRequest(r))
}

func TestCheckRequestAPIKeyHeader(t *testing.T) {
	p := New("secret", "", "")
	r := httptest.NewRequest(http.MethodGet, "/db", nil)
	r.Header.Set("X-API-Key", "secret")
	assert.True(t, p.CheckRequest(r))
}

func TestCheckRequestBasicAuthHeader(t *testing.T) {
	p := New("", "alice", "hunter2")
	r := httptest.NewRequest(http.MethodGet, "/db", nil)
	creds := base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	r.Header.Set("Authorization", "Basic "+creds)
	assert.True(t, p.CheckRequest(r))
}

func TestCheckRequestRejectsMissingOrWrongCredential(t *testing.T) {
	p := New("secret", "", "")
	r := httptest.NewRequest(http.MethodGet, "/db", nil)
	assert.False(t, p.CheckRequest(r))

	r.Header.Set("Authorization", "Bearer wrong")
	assert.False(t, p.CheckRequest(r))
}
