package memgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

func openHandle(t *testing.T) engine.Handle {
	t.Helper()
	h, err := Open(engine.Config{GraphModel: engine.GraphModelLPG})
	require.NoError(t, err)
	return h
}

func TestCreateAndMatchRoundtrip(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	_, err := sess.ExecuteGQL(context.Background(), `CREATE (n:Person {name:'Alice', age:30}) RETURN n.name, n.age`, nil)
	require.NoError(t, err)

	result, err := sess.ExecuteGQL(context.Background(), `MATCH (n:Person) RETURN n.name, n.age`, nil)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"n.name", "n.age"}, result.Columns)
	assert.Equal(t, engine.NewString("Alice"), result.Rows[0][0])
	assert.Equal(t, engine.NewInt64(30), result.Rows[0][1])
	assert.Equal(t, uint64(1), h.NodeCount())
}

func TestMatchFiltersByLabel(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	_, err := sess.ExecuteGQL(context.Background(), `CREATE (n:Person {name:'Alice'}) RETURN n.name`, nil)
	require.NoError(t, err)
	_, err = sess.ExecuteGQL(context.Background(), `CREATE (n:Company {name:'Acme'}) RETURN n.name`, nil)
	require.NoError(t, err)

	result, err := sess.ExecuteGQL(context.Background(), `MATCH (n:Company) RETURN n.name`, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, engine.NewString("Acme"), result.Rows[0][0])
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	require.NoError(t, sess.BeginTx())
	_, err := sess.ExecuteGQL(context.Background(), `CREATE (n:Person {name:'Bob'}) RETURN n.name`, nil)
	require.NoError(t, err)
	require.NoError(t, sess.Rollback())

	result, err := sess.ExecuteGQL(context.Background(), `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 0)
	assert.Equal(t, uint64(0), h.NodeCount())
}

func TestTransactionCommitPersistsWrites(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	require.NoError(t, sess.BeginTx())
	_, err := sess.ExecuteGQL(context.Background(), `CREATE (n:Person {name:'Carl'}) RETURN n.name`, nil)
	require.NoError(t, err)
	require.NoError(t, sess.Commit())

	assert.Equal(t, uint64(1), h.NodeCount())
}

func TestOtherLanguagesDispatchToTheSameStore(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	stmt := `CREATE (n:Person {name:'Dana'}) RETURN n.name`
	_, err := sess.ExecuteCypher(context.Background(), stmt, nil)
	require.NoError(t, err)

	result, err := sess.ExecuteGremlin(context.Background(), `MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, engine.NewString("Dana"), result.Rows[0][0])
}

func TestVectorSearchReturnsTopK(t *testing.T) {
	h := openHandle(t)
	sess := h.Session()

	_, err := sess.ExecuteGQL(context.Background(), `CREATE (n:Doc {name:'a'}) RETURN n.name`, nil)
	require.NoError(t, err)

	hits, err := h.VectorSearch("Doc", "embedding", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 5)
}
