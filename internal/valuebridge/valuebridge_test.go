package valuebridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

// roundTrip simulates how every transport actually uses this package: the
// encoded tree is marshaled to JSON and unmarshaled back into `any` before
// DecodeJSON ever sees it, which is what actually exercises the $type/
// $value tagging (EncodeJSON's own Go-typed taggedValue struct is never
// passed to DecodeJSON directly in real code).
func roundTrip(t *testing.T, v engine.Value) engine.Value {
	t.Helper()
	encoded := EncodeJSON(v)
	raw, err := json.Marshal(encoded)
	require.NoError(t, err)

	var decoded any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	out, err := DecodeJSON(decoded)
	require.NoError(t, err)
	return out
}

func TestRoundTripScalars(t *testing.T) {
	assert.Equal(t, engine.Null, roundTrip(t, engine.Null))
	assert.Equal(t, engine.NewBool(true), roundTrip(t, engine.NewBool(true)))
	assert.Equal(t, engine.NewInt64(42), roundTrip(t, engine.NewInt64(42)))
	assert.Equal(t, engine.NewFloat64(3.5), roundTrip(t, engine.NewFloat64(3.5)))
	assert.Equal(t, engine.NewString("hello"), roundTrip(t, engine.NewString("hello")))
}

func TestRoundTripBytes(t *testing.T) {
	v := engine.NewBytes([]byte{0x00, 0x01, 0xFF})
	assert.Equal(t, v, roundTrip(t, v))
}

func TestRoundTripTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	v := engine.NewTimestamp(ts)
	got := roundTrip(t, v)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestRoundTripVector(t *testing.T) {
	v := engine.NewVector([]float32{1, 2, 3.5})
	assert.Equal(t, v, roundTrip(t, v))
}

func TestRoundTripList(t *testing.T) {
	v := engine.NewList([]engine.Value{engine.NewInt64(1), engine.NewString("x")})
	assert.Equal(t, v, roundTrip(t, v))
}

func TestRoundTripMapPreservesKeyOrder(t *testing.T) {
	v := engine.NewMap(map[string]engine.Value{
		"b": engine.NewInt64(2),
		"a": engine.NewInt64(1),
	})
	got := roundTrip(t, v)
	assert.Equal(t, []string{"a", "b"}, got.MapKeys)
}

func TestDecodeParamsSkipsUndecodable(t *testing.T) {
	raw := map[string]any{
		"ok":  "value",
		"bad": make(chan int), // not JSON-representable, DecodeJSON should reject it
	}
	params, skipped := DecodeParams(raw)
	assert.Contains(t, skipped, "bad")
	assert.Equal(t, engine.NewString("value"), params["ok"])
	_, hasBad := params["bad"]
	assert.False(t, hasBad)
}

func TestEncodeRow(t *testing.T) {
	row := []engine.Value{engine.NewInt64(1), engine.NewBool(false)}
	encoded := EncodeRow(row)
	require.Len(t, encoded, 2)
	assert.Equal(t, int64(1), encoded[0])
	assert.Equal(t, false, encoded[1])
}
