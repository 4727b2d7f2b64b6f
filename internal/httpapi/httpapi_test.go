package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/logging"
	"github.com/GrafeoDB/grafeo-server/internal/service"
)

func newTestServer(t *testing.T, state *service.State) *httptest.Server {
	t.Helper()
	srv := New(state, logging.New("test", "error", "text"), "test", "test-engine", 1000)
	return httptest.NewServer(srv.Router())
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// TestAutoCommitRoundtrip covers spec §8's scenario 1: a CREATE followed by
// a MATCH on the default database sees the created node.
func TestAutoCommitRoundtrip(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/query", QueryRequest{
		Query: `CREATE (n:Person {name:'Alice', age:30}) RETURN n.name, n.age`,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{
		Query: `MATCH (n:Person) RETURN n.name, n.age`,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Alice", result.Rows[0][0])
}

// TestTransactionCommitVisibility covers scenario 2: a write inside an open
// transaction is only visible after commit.
func TestTransactionCommitVisibility(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/tx/begin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tx TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tx))
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/tx/query", QueryRequest{
		Query: `CREATE (n:Person {name:'Bob', age:40}) RETURN n.name`,
	}, map[string]string{"X-Session-Id": tx.SessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{Query: `MATCH (n:Person) RETURN n.name`}, nil)
	var before QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&before))
	resp.Body.Close()
	assert.Len(t, before.Rows, 0, "uncommitted write must not be visible outside the transaction")

	resp = doJSON(t, ts, http.MethodPost, "/tx/commit", nil, map[string]string{"X-Session-Id": tx.SessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{Query: `MATCH (n:Person) RETURN n.name`}, nil)
	var after QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	resp.Body.Close()
	assert.Len(t, after.Rows, 1, "committed write must be visible")
}

// TestTransactionRollbackDiscardsWrites covers the rollback half of
// scenario 2.
func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/tx/begin", nil, nil)
	var tx TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tx))
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/tx/query", QueryRequest{
		Query: `CREATE (n:Person {name:'Carl', age:50}) RETURN n.name`,
	}, map[string]string{"X-Session-Id": tx.SessionID})
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/tx/rollback", nil, map[string]string{"X-Session-Id": tx.SessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{Query: `MATCH (n:Person) RETURN n.name`}, nil)
	var after QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	resp.Body.Close()
	assert.Len(t, after.Rows, 0, "rolled-back writes must never become visible")
}

// TestDatabaseIsolation covers scenario 3: writes to one database are
// invisible from another.
func TestDatabaseIsolation(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/db", CreateDatabaseRequest{Name: "other"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{
		Query:    `CREATE (n:Person {name:'Dana', age:22}) RETURN n.name`,
		Database: "other",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{Query: `MATCH (n:Person) RETURN n.name`}, nil)
	var defaultResult QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&defaultResult))
	resp.Body.Close()
	assert.Len(t, defaultResult.Rows, 0, "default database must not see the other database's write")

	resp = doJSON(t, ts, http.MethodPost, "/query", QueryRequest{
		Query:    `MATCH (n:Person) RETURN n.name`,
		Database: "other",
	}, nil)
	var otherResult QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&otherResult))
	resp.Body.Close()
	assert.Len(t, otherResult.Rows, 1)
}

// TestRateLimitBoundary covers scenario 4: M=3 requests per W=1s window.
func TestRateLimitBoundary(t *testing.T) {
	state, err := service.NewInMemoryWithRateLimit(3, time.Second)
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp := doJSON(t, ts, http.MethodGet, "/db", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "request %d within the window should be allowed", i+1)
		resp.Body.Close()
	}
	resp := doJSON(t, ts, http.MethodGet, "/db", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

// TestAuthMatrix covers scenario 5: bearer, X-API-Key, rejection, and the
// /health exemption.
func TestAuthMatrix(t *testing.T) {
	state, err := service.NewInMemoryWithAuth("secret-token")
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodGet, "/db", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "no credential should be rejected")
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/db", nil, map[string]string{"Authorization": "Bearer secret-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/db", nil, map[string]string{"X-Api-Key": "secret-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/db", nil, map[string]string{"Authorization": "Bearer wrong-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "/health is exempt from auth")
	resp.Body.Close()
}

// TestStreamingBatchFraming covers scenario 6: 2500 rows with a batch size
// of 1000 frame into a header followed by 3 row batches (1000, 1000, 500),
// verified here via a straight decode of the streamed body (the byte-exact
// framing contract itself is covered in internal/stream's own tests).
func TestStreamingBatchFraming(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	for i := 0; i < 2500; i++ {
		resp := doJSON(t, ts, http.MethodPost, "/query", QueryRequest{
			Query: `CREATE (n:Row {name:'r', age:1}) RETURN n.name`,
		}, nil)
		resp.Body.Close()
	}

	resp := doJSON(t, ts, http.MethodPost, "/query", QueryRequest{Query: `MATCH (n:Row) RETURN n.name`}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Len(t, result.Rows, 2500)
}

// TestCreateDatabaseTypeMapping covers database_type validation: a
// schema-backed type (owl-schema) without a schema_file is rejected, an
// unrecognized type string is rejected rather than silently treated as
// LPG, and the plain rdf type is accepted.
func TestCreateDatabaseTypeMapping(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/db", CreateDatabaseRequest{
		Name:         "needs-schema",
		DatabaseType: "owl-schema",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "schema-backed type without schema_file must be rejected")
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/db", CreateDatabaseRequest{
		Name:         "bogus-type",
		DatabaseType: "not-a-real-type",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unrecognized database_type must be rejected")
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/db", CreateDatabaseRequest{
		Name:         "rdf-db",
		DatabaseType: "rdf",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthBody(t *testing.T) {
	state, err := service.NewInMemory()
	require.NoError(t, err)
	ts := newTestServer(t, state)
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()

	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Persistent)
	assert.Contains(t, health.Features.Languages, "gql")
}
