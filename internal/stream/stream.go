// Package stream implements the lazy row-batch iterator and the
// HTTP-facing streaming JSON framer (spec §4.4, C10), grounded on
// original_source/crates/grafeo-service/src/stream.rs::RowBatchIter.
package stream

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

// RowBatcher lazily slices a QueryResult's rows into batches of at most
// batchSize rows each. A batchSize of 0 is treated as 1 (spec §8 Boundary
// behavior), matching RowBatchIter's `batch_size.max(1)`.
type RowBatcher struct {
	rows      [][]engine.Value
	batchSize int
	offset    int
}

// NewRowBatcher constructs a RowBatcher over rows.
func NewRowBatcher(rows [][]engine.Value, batchSize int) *RowBatcher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &RowBatcher{rows: rows, batchSize: batchSize}
}

// Next returns the next batch of rows, or (nil, false) once exhausted.
func (b *RowBatcher) Next() ([][]engine.Value, bool) {
	if b.offset >= len(b.rows) {
		return nil, false
	}
	end := b.offset + b.batchSize
	if end > len(b.rows) {
		end = len(b.rows)
	}
	batch := b.rows[b.offset:end]
	b.offset = end
	return batch, true
}

// Remaining reports how many rows have not yet been returned by Next.
func (b *RowBatcher) Remaining() int {
	return len(b.rows) - b.offset
}

// BatchCount reports how many batches Next will yield in total: ⌈len(rows)
// / batchSize⌉, per Testable Property 3.
func (b *RowBatcher) BatchCount() int {
	if len(b.rows) == 0 {
		return 0
	}
	return (len(b.rows) + b.batchSize - 1) / b.batchSize
}

// WriteJSON streams result to w using the byte-exact streaming JSON
// contract from spec §6: `{"columns":[...],"rows":[` then each row as a
// JSON array separated by a single comma, then `]` and the optional
// trailing keys in order (`execution_time_ms`, `rows_scanned`), then `}`.
// Flushing per batch (when w is an http.Flusher) minimizes first-byte
// latency, per spec §9's open question on transport-level flushing.
func WriteJSON(w io.Writer, result engine.QueryResult, batchSize int) error {
	if _, err := w.Write([]byte(`{"columns":`)); err != nil {
		return err
	}
	columnsJSON, err := json.Marshal(result.Columns)
	if err != nil {
		return err
	}
	if _, err := w.Write(columnsJSON); err != nil {
		return err
	}
	if _, err := w.Write([]byte(`,"rows":[`)); err != nil {
		return err
	}

	batcher := NewRowBatcher(result.Rows, batchSize)
	first := true
	for {
		batch, ok := batcher.Next()
		if !ok {
			break
		}
		for _, row := range batch {
			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			first = false
			rowJSON, err := json.Marshal(valuebridge.EncodeRow(row))
			if err != nil {
				return err
			}
			if _, err := w.Write(rowJSON); err != nil {
				return err
			}
		}
		if f, ok := w.(flusher); ok {
			f.Flush()
		}
	}

	if _, err := w.Write([]byte("]")); err != nil {
		return err
	}

	if result.ExecutionTimeMs != nil {
		tail, err := json.Marshal(*result.ExecutionTimeMs)
		if err != nil {
			return err
		}
		if _, err := w.Write(append([]byte(`,"execution_time_ms":`), tail...)); err != nil {
			return err
		}
	}
	if result.RowsScanned != nil {
		tail, err := json.Marshal(*result.RowsScanned)
		if err != nil {
			return err
		}
		if _, err := w.Write(append([]byte(`,"rows_scanned":`), tail...)); err != nil {
			return err
		}
	}

	_, err = w.Write([]byte("}"))
	return err
}

// flusher mirrors http.Flusher without importing net/http, so this package
// stays usable from non-HTTP contexts (e.g. tests writing to a
// bytes.Buffer, which never satisfies it and is simply never flushed).
type flusher interface {
	Flush()
}

// MarshalJSON renders result as one materialized JSON document, used to
// verify the byte-exact streaming contract (Testable Property 4: the
// streamed body concatenated is byte-identical to this) and as the
// non-streaming response body for small results.
func MarshalJSON(result engine.QueryResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, result, len(result.Rows)+1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
