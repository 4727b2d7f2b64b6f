// Package engine defines the port between the transport-and-session core
// and the embedded graph engine. The engine itself — query compilation and
// execution, on-disk format, WAL, indexes — is out of scope for this
// module (spec §1); this package only names the contract the core
// depends on, plus the value taxonomy both sides speak.
//
// internal/engine/memgraph provides a minimal in-memory implementation
// used by tests and by a from-scratch server run with no other engine
// wired in.
package engine

import (
	"context"
	"sort"
	"time"
)

// Kind tags the variant carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindTimestamp
	KindList
	KindMap
	KindVector
)

// Value is the engine's value taxonomy (spec §3): a closed sum type every
// protocol's value bridge converts to and from.
type Value struct {
	Kind      Kind
	Bool      bool
	Int64     int64
	Float64   float64
	String    string
	Bytes     []byte
	Timestamp time.Time
	List      []Value
	// Map preserves deterministic (alphabetic-by-key) iteration via MapKeys.
	Map     map[string]Value
	MapKeys []string
	Vector  []float32
}

// Null is the zero Value of kind Null.
var Null = Value{Kind: KindNull}

func NewBool(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func NewInt64(i int64) Value  { return Value{Kind: KindInt64, Int64: i} }
func NewFloat64(f float64) Value { return Value{Kind: KindFloat64, Float64: f} }
func NewString(s string) Value { return Value{Kind: KindString, String: s} }
func NewBytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }
func NewTimestamp(t time.Time) Value { return Value{Kind: KindTimestamp, Timestamp: t} }
func NewList(vs []Value) Value { return Value{Kind: KindList, List: vs} }
func NewVector(v []float32) Value { return Value{Kind: KindVector, Vector: v} }

// NewMap builds a Map value with deterministic alphabetic key order,
// matching spec §3's invariant that maps are reproducibly ordered.
func NewMap(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Value{Kind: KindMap, Map: m, MapKeys: keys}
}

// LogicalType is the engine's column type tag.
type LogicalType string

const (
	TypeNull      LogicalType = "null"
	TypeBool      LogicalType = "bool"
	TypeInt64     LogicalType = "int64"
	TypeFloat64   LogicalType = "float64"
	TypeString    LogicalType = "string"
	TypeBytes     LogicalType = "bytes"
	TypeTimestamp LogicalType = "timestamp"
	TypeList      LogicalType = "list"
	TypeMap       LogicalType = "map"
	TypeVector    LogicalType = "vector"
)

// QueryResult is a finite, already-materialized result (spec §3).
// Invariant: every row has arity == len(Columns); len(ColumnTypes) ==
// len(Columns).
type QueryResult struct {
	Columns         []string
	ColumnTypes     []LogicalType
	Rows            [][]Value
	ExecutionTimeMs *float64
	RowsScanned     *uint64
}

// Params is a parameter map from string keys to engine values. An empty
// map is equivalent to absent, per spec §4.3.
type Params map[string]Value

// SchemaLabel describes one catalogued node/edge label.
type SchemaLabel struct {
	Name       string
	Properties []SchemaProperty
}

// SchemaProperty describes one property of a catalogued label.
type SchemaProperty struct {
	Name string
	Type LogicalType
}

// Stats is the database statistics record returned by the admin service.
type Stats struct {
	NodeCount        uint64
	EdgeCount        uint64
	MemoryUsedBytes  uint64
	DiskUsedBytes    uint64
	MemoryLimitBytes *uint64
}

// WALStatus reports write-ahead-log health for the admin WAL endpoints.
type WALStatus struct {
	Enabled        bool
	Durability     string
	PendingBytes   uint64
	LastCheckpoint *time.Time
}

// ValidationIssue is one entry of an integrity-validation report.
type ValidationIssue struct {
	Code    string
	Message string
	Context map[string]string
}

// ValidationReport is the result of an integrity validation pass.
type ValidationReport struct {
	Valid    bool
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// IndexKind tags the variety of index create/drop operations (spec §4.8).
type IndexKind int

const (
	IndexProperty IndexKind = iota
	IndexVector
	IndexText
)

// IndexDef names an index to create or drop.
type IndexDef struct {
	Kind     IndexKind
	Label    string
	Property string
	// Vector-only tuning.
	Dimensions int
	Metric     string
}

// SearchHit is one result row of a vector/text/hybrid search.
type SearchHit struct {
	NodeID int64
	Score  float64
	Props  map[string]Value
}

// DurabilityMode is the WAL durability setting threaded from
// DatabaseOptions into the engine config (spec §4.1 step 4).
type DurabilityMode string

const (
	DurabilitySync     DurabilityMode = "sync"
	DurabilityBatch    DurabilityMode = "batch"
	DurabilityAdaptive DurabilityMode = "adaptive"
	DurabilityNoSync   DurabilityMode = "nosync"
)

// GraphModel is the engine's structural model, derived from the
// database-type tag (spec §3).
type GraphModel string

const (
	GraphModelLPG GraphModel = "lpg"
	GraphModelRDF GraphModel = "rdf"
)

// Config assembles the engine parameters the database manager derives from
// a CreateDatabaseRequest (spec §4.1 step 4).
type Config struct {
	GraphModel        GraphModel
	Path              string // empty for in-memory
	MemoryLimitBytes  uint64
	Threads           int
	BackwardEdges     bool
	WALEnabled        bool
	WALDurability     DurabilityMode
	SpillPath         string
	SchemaConstraints bool
}

// Handle is the external engine's owner of graph state. A database owns
// exactly one Handle for its lifetime (spec §3).
type Handle interface {
	// Session creates a fresh engine session on this handle.
	Session() Session
	NodeCount() uint64
	EdgeCount() uint64
	Stats() Stats
	Schema() []SchemaLabel
	GraphModel() GraphModel
	Path() (string, bool)
	MemoryLimitBytes() (uint64, bool)

	CreateIndex(def IndexDef) error
	DropIndex(def IndexDef) error

	WALStatus() WALStatus
	Checkpoint() error
	Validate() ValidationReport

	VectorSearch(label, property string, query []float32, k int) ([]SearchHit, error)
	TextSearch(label, property, query string, k int) ([]SearchHit, error)
	HybridSearch(label, property, textQuery string, vectorQuery []float32, k int) ([]SearchHit, error)

	Close() error
}

// Session is a single-threaded handle on which queries execute (spec §3).
// A Session belongs to one Handle; transactional state is per-session.
type Session interface {
	BeginTx() error
	Commit() error
	Rollback() error

	ExecuteGQL(ctx context.Context, statement string, params Params) (QueryResult, error)
	ExecuteCypher(ctx context.Context, statement string, params Params) (QueryResult, error)
	ExecuteGraphQL(ctx context.Context, statement string, params Params) (QueryResult, error)
	ExecuteGremlin(ctx context.Context, statement string, params Params) (QueryResult, error)
	ExecuteSPARQL(ctx context.Context, statement string, params Params) (QueryResult, error)
	ExecuteSQLPGQ(ctx context.Context, statement string, params Params) (QueryResult, error)
}

// Factory opens or creates a Handle from a Config. Implementations live in
// sibling packages (e.g. internal/engine/memgraph).
type Factory func(cfg Config) (Handle, error)
