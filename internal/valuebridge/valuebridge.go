// Package valuebridge converts between the engine's closed Value taxonomy
// (internal/engine) and each transport's own value representation: JSON for
// the HTTP and WebSocket APIs, structpb for the gRPC-framed streaming
// protocol, and the driver protocol's wire values.
//
// Round trip (spec §4.2, Testable Property 1): marshaling EncodeJSON(v)
// with encoding/json, unmarshaling it into any, and passing that to
// DecodeJSON yields v again, except that a Float64 with an integral value
// comes back as an Int64 and integers beyond float64 precision lose
// precision. EncodeJSON's output is not accepted by DecodeJSON directly
// (its tagged values are Go structs until marshaled). EncodeJSON is total
// — it never panics, never returns an error, for any well-formed
// engine.Value.
package valuebridge

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

// EncodeJSON converts an engine Value into a plain Go value tree built from
// bool, float64/int64/string, []any, map[string]any and taggedValue — the
// shapes encoding/json already knows how to marshal. Timestamps render as
// RFC 3339Nano strings; bytes render as base64 strings; both are tagged so
// DecodeJSON can recover the original Kind unambiguously.
func EncodeJSON(v engine.Value) any {
	switch v.Kind {
	case engine.KindNull:
		return nil
	case engine.KindBool:
		return v.Bool
	case engine.KindInt64:
		return v.Int64
	case engine.KindFloat64:
		return v.Float64
	case engine.KindString:
		return v.String
	case engine.KindBytes:
		return taggedValue{Type: "bytes", Value: base64.StdEncoding.EncodeToString(v.Bytes)}
	case engine.KindTimestamp:
		return taggedValue{Type: "timestamp", Value: v.Timestamp.UTC().Format(time.RFC3339Nano)}
	case engine.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = EncodeJSON(e)
		}
		return out
	case engine.KindVector:
		out := make([]float64, len(v.Vector))
		for i, f := range v.Vector {
			out[i] = float64(f)
		}
		return taggedValue{Type: "vector", Value: out}
	case engine.KindMap:
		out := make(map[string]any, len(v.Map))
		for _, k := range v.MapKeys {
			out[k] = EncodeJSON(v.Map[k])
		}
		return out
	default:
		return nil
	}
}

// taggedValue marks a JSON-ambiguous scalar (bytes, timestamp, vector) with
// its original Kind so DecodeJSON can invert EncodeJSON exactly.
type taggedValue struct {
	Type  string `json:"$type"`
	Value any    `json:"$value"`
}

// DecodeJSON converts a plain Go value tree (as produced by encoding/json's
// Unmarshal into any) back into an engine.Value. It rejects Go types that
// such an unmarshal never produces (including EncodeJSON's own taggedValue
// struct) and objects whose $type tag is unknown; an object without a
// $type key is treated as a plain KindMap, the JSON-native default.
func DecodeJSON(v any) (engine.Value, error) {
	switch t := v.(type) {
	case nil:
		return engine.Null, nil
	case bool:
		return engine.NewBool(t), nil
	case float64:
		if t == float64(int64(t)) {
			return engine.NewInt64(int64(t)), nil
		}
		return engine.NewFloat64(t), nil
	case int64:
		return engine.NewInt64(t), nil
	case string:
		return engine.NewString(t), nil
	case []any:
		out := make([]engine.Value, len(t))
		for i, e := range t {
			ev, err := DecodeJSON(e)
			if err != nil {
				return engine.Null, err
			}
			out[i] = ev
		}
		return engine.NewList(out), nil
	case map[string]any:
		if typ, ok := t["$type"].(string); ok {
			return decodeTagged(typ, t["$value"])
		}
		out := make(map[string]engine.Value, len(t))
		for k, e := range t {
			ev, err := DecodeJSON(e)
			if err != nil {
				return engine.Null, err
			}
			out[k] = ev
		}
		return engine.NewMap(out), nil
	default:
		return engine.Null, fmt.Errorf("valuebridge: unsupported JSON value of type %T", v)
	}
}

func decodeTagged(typ string, raw any) (engine.Value, error) {
	switch typ {
	case "bytes":
		s, ok := raw.(string)
		if !ok {
			return engine.Null, fmt.Errorf("valuebridge: $type=bytes requires a base64 string $value")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return engine.Null, fmt.Errorf("valuebridge: invalid base64 bytes value: %w", err)
		}
		return engine.NewBytes(b), nil
	case "timestamp":
		s, ok := raw.(string)
		if !ok {
			return engine.Null, fmt.Errorf("valuebridge: $type=timestamp requires an RFC3339 string $value")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return engine.Null, fmt.Errorf("valuebridge: invalid timestamp value: %w", err)
		}
		return engine.NewTimestamp(t), nil
	case "vector":
		arr, ok := raw.([]any)
		if !ok {
			return engine.Null, fmt.Errorf("valuebridge: $type=vector requires an array $value")
		}
		out := make([]float32, len(arr))
		for i, e := range arr {
			f, ok := e.(float64)
			if !ok {
				return engine.Null, fmt.Errorf("valuebridge: vector element %d is not numeric", i)
			}
			out[i] = float32(f)
		}
		return engine.NewVector(out), nil
	default:
		return engine.Null, fmt.Errorf("valuebridge: unknown tagged $type %q", typ)
	}
}

// EncodeRow converts a full engine result row to its JSON tree form.
func EncodeRow(row []engine.Value) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = EncodeJSON(v)
	}
	return out
}

// DecodeParams converts a JSON object (already unmarshaled into
// map[string]any) into engine.Params, filtering out keys whose value is a
// shape the engine parameter taxonomy cannot represent instead of failing
// the whole request (spec §4.2's "filters unsupported parameter kinds"
// requirement covers, specifically, values this decoder cannot tag — e.g. a
// raw JSON object carrying an unrecognized $type).
func DecodeParams(raw map[string]any) (engine.Params, []string) {
	params := make(engine.Params, len(raw))
	var skipped []string
	for k, v := range raw {
		ev, err := DecodeJSON(v)
		if err != nil {
			skipped = append(skipped, k)
			continue
		}
		params[k] = ev
	}
	return params, skipped
}
