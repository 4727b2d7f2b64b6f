package stream

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

func rowsOf(n int) [][]engine.Value {
	rows := make([][]engine.Value, n)
	for i := range rows {
		rows[i] = []engine.Value{engine.NewInt64(int64(i))}
	}
	return rows
}

func TestRowBatcherYieldsBatchesOfAtMostBatchSize(t *testing.T) {
	b := NewRowBatcher(rowsOf(2500), 1000)
	assert.Equal(t, 3, b.BatchCount())

	first, ok := b.Next()
	require.True(t, ok)
	assert.Len(t, first, 1000)

	second, ok := b.Next()
	require.True(t, ok)
	assert.Len(t, second, 1000)

	third, ok := b.Next()
	require.True(t, ok)
	assert.Len(t, third, 500)

	_, ok = b.Next()
	assert.False(t, ok)
}

func TestRowBatcherZeroBatchSizeTreatedAsOne(t *testing.T) {
	b := NewRowBatcher(rowsOf(3), 0)
	assert.Equal(t, 3, b.BatchCount())
	batch, ok := b.Next()
	require.True(t, ok)
	assert.Len(t, batch, 1)
}

func TestRowBatcherEmptyRows(t *testing.T) {
	b := NewRowBatcher(nil, 10)
	assert.Equal(t, 0, b.BatchCount())
	_, ok := b.Next()
	assert.False(t, ok)
}

func TestRowBatcherRemaining(t *testing.T) {
	b := NewRowBatcher(rowsOf(5), 2)
	assert.Equal(t, 5, b.Remaining())
	b.Next()
	assert.Equal(t, 3, b.Remaining())
}

func TestWriteJSONShape(t *testing.T) {
	execMs := 1.5
	rowsScanned := uint64(2)
	result := engine.QueryResult{
		Columns:         []string{"n.name"},
		Rows:            [][]engine.Value{{engine.NewString("Alice")}, {engine.NewString("Bob")}},
		ExecutionTimeMs: &execMs,
		RowsScanned:     &rowsScanned,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result, 1))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, []any{"n.name"}, decoded["columns"])
	rows, ok := decoded["rows"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1.5, decoded["execution_time_ms"])
	assert.Equal(t, float64(2), decoded["rows_scanned"])
}

func TestWriteJSONOmitsTrailingKeysWhenNil(t *testing.T) {
	result := engine.QueryResult{Columns: []string{"n.name"}, Rows: nil}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result, 10))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	_, hasExec := decoded["execution_time_ms"]
	_, hasScanned := decoded["rows_scanned"]
	assert.False(t, hasExec)
	assert.False(t, hasScanned)
}
