// Package memgraph is a minimal in-memory reference implementation of the
// engine.Handle / engine.Session ports.
//
// It is NOT the graph engine the spec's query-compilation-and-execution
// concerns are about (those are explicitly out of scope, per spec §1
// Non-goals) — it exists only so the transport-and-session core has
// something real to drive in tests and in a from-scratch run, the way the
// teacher's infrastructure/database package ships a mock_repository.go
// beside its real Supabase-backed repository.
//
// It understands a deliberately tiny subset of GQL-shaped statements —
// CREATE (:Label {k:v,...}) and MATCH (n:Label) RETURN n.prop[, n.prop2] —
// just enough to exercise the session/transaction/streaming machinery
// end to end. Every other language dispatches here too (there is only one
// storage model), since distinguishing Cypher/Gremlin/SPARQL/SQL-PGQ
// surface syntax is the out-of-scope engine's job, not the core's.
package memgraph

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

type node struct {
	id     int64
	labels []string
	props  map[string]engine.Value
}

// store holds the actual graph data, shared (by pointer) between the
// committed handle and any in-flight transaction's working copy.
type store struct {
	mu      sync.RWMutex
	nodes   []*node
	nextID  int64
	edges   int64
	model   engine.GraphModel
	cfg     engine.Config
	indexes []engine.IndexDef
	wal     engine.WALStatus
}

// Handle is the memgraph-backed engine.Handle.
type Handle struct {
	s *store
}

// Open constructs a memgraph Handle from an engine.Config. Path is
// informational only — memgraph never touches disk; persistence is the
// real engine's concern.
func Open(cfg engine.Config) (engine.Handle, error) {
	model := cfg.GraphModel
	if model == "" {
		model = engine.GraphModelLPG
	}
	return &Handle{s: &store{
		model: model,
		cfg:   cfg,
		wal:   engine.WALStatus{Enabled: cfg.WALEnabled, Durability: string(cfg.WALDurability)},
	}}, nil
}

func (h *Handle) Session() engine.Session {
	return &session{h: h, tx: nil}
}

func (h *Handle) NodeCount() uint64 {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	return uint64(len(h.s.nodes))
}

func (h *Handle) EdgeCount() uint64 {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	return uint64(h.s.edges)
}

func (h *Handle) Stats() engine.Stats {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	st := engine.Stats{
		NodeCount:       uint64(len(h.s.nodes)),
		EdgeCount:       uint64(h.s.edges),
		MemoryUsedBytes: uint64(len(h.s.nodes)) * 256,
	}
	if h.s.cfg.MemoryLimitBytes > 0 {
		limit := h.s.cfg.MemoryLimitBytes
		st.MemoryLimitBytes = &limit
	}
	return st
}

func (h *Handle) Schema() []engine.SchemaLabel {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	byLabel := map[string]map[string]engine.LogicalType{}
	order := []string{}
	for _, n := range h.s.nodes {
		for _, label := range n.labels {
			props, ok := byLabel[label]
			if !ok {
				props = map[string]engine.LogicalType{}
				byLabel[label] = props
				order = append(order, label)
			}
			for k, v := range n.props {
				props[k] = logicalTypeOf(v)
			}
		}
	}
	result := make([]engine.SchemaLabel, 0, len(order))
	for _, label := range order {
		props := byLabel[label]
		sl := engine.SchemaLabel{Name: label}
		for name, typ := range props {
			sl.Properties = append(sl.Properties, engine.SchemaProperty{Name: name, Type: typ})
		}
		result = append(result, sl)
	}
	return result
}

func logicalTypeOf(v engine.Value) engine.LogicalType {
	switch v.Kind {
	case engine.KindBool:
		return engine.TypeBool
	case engine.KindInt64:
		return engine.TypeInt64
	case engine.KindFloat64:
		return engine.TypeFloat64
	case engine.KindString:
		return engine.TypeString
	case engine.KindBytes:
		return engine.TypeBytes
	case engine.KindTimestamp:
		return engine.TypeTimestamp
	case engine.KindList:
		return engine.TypeList
	case engine.KindMap:
		return engine.TypeMap
	case engine.KindVector:
		return engine.TypeVector
	default:
		return engine.TypeNull
	}
}

func (h *Handle) GraphModel() engine.GraphModel { return h.s.model }

func (h *Handle) Path() (string, bool) {
	if h.s.cfg.Path == "" {
		return "", false
	}
	return h.s.cfg.Path, true
}

func (h *Handle) MemoryLimitBytes() (uint64, bool) {
	if h.s.cfg.MemoryLimitBytes == 0 {
		return 0, false
	}
	return h.s.cfg.MemoryLimitBytes, true
}

func (h *Handle) CreateIndex(def engine.IndexDef) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.indexes = append(h.s.indexes, def)
	return nil
}

func (h *Handle) DropIndex(def engine.IndexDef) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	out := h.s.indexes[:0]
	for _, idx := range h.s.indexes {
		if idx.Kind == def.Kind && idx.Label == def.Label && idx.Property == def.Property {
			continue
		}
		out = append(out, idx)
	}
	h.s.indexes = out
	return nil
}

func (h *Handle) WALStatus() engine.WALStatus {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	return h.s.wal
}

func (h *Handle) Checkpoint() error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	now := time.Now()
	h.s.wal.LastCheckpoint = &now
	h.s.wal.PendingBytes = 0
	return nil
}

func (h *Handle) Validate() engine.ValidationReport {
	return engine.ValidationReport{Valid: true}
}

func (h *Handle) VectorSearch(label, property string, query []float32, k int) ([]engine.SearchHit, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	hits := []engine.SearchHit{}
	for _, n := range h.s.nodes {
		if !hasLabel(n, label) {
			continue
		}
		v, ok := n.props[property]
		if !ok || v.Kind != engine.KindVector {
			continue
		}
		hits = append(hits, engine.SearchHit{NodeID: n.id, Score: cosineSim(query, v.Vector), Props: n.props})
	}
	return topK(hits, k), nil
}

func (h *Handle) TextSearch(label, property, query string, k int) ([]engine.SearchHit, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	q := strings.ToLower(query)
	hits := []engine.SearchHit{}
	for _, n := range h.s.nodes {
		if !hasLabel(n, label) {
			continue
		}
		v, ok := n.props[property]
		if !ok || v.Kind != engine.KindString {
			continue
		}
		if strings.Contains(strings.ToLower(v.String), q) {
			hits = append(hits, engine.SearchHit{NodeID: n.id, Score: bm25Stub(v.String, q), Props: n.props})
		}
	}
	return topK(hits, k), nil
}

func (h *Handle) HybridSearch(label, property, textQuery string, vectorQuery []float32, k int) ([]engine.SearchHit, error) {
	textHits, _ := h.TextSearch(label, property, textQuery, k)
	vecHits, _ := h.VectorSearch(label, property, vectorQuery, k)
	// Fusion tie-breaking is left to the engine per spec §9 Open Questions;
	// this reference engine simply sums the raw text and vector scores by
	// node id.
	merged := map[int64]engine.SearchHit{}
	for _, hit := range textHits {
		merged[hit.NodeID] = hit
	}
	for _, hit := range vecHits {
		if existing, ok := merged[hit.NodeID]; ok {
			existing.Score += hit.Score
			merged[hit.NodeID] = existing
		} else {
			merged[hit.NodeID] = hit
		}
	}
	out := make([]engine.SearchHit, 0, len(merged))
	for _, hit := range merged {
		out = append(out, hit)
	}
	return topK(out, k), nil
}

func (h *Handle) Close() error { return nil }

func hasLabel(n *node, label string) bool {
	for _, l := range n.labels {
		if l == label {
			return true
		}
	}
	return false
}

func topK(hits []engine.SearchHit, k int) []engine.SearchHit {
	// simple insertion sort by descending score; result sets here are tiny.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].Score < hits[j].Score; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(f float64) float64 {
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 32; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func bm25Stub(text, query string) float64 {
	return float64(strings.Count(strings.ToLower(text), query) + 1)
}

// ---------------------------------------------------------------------------
// session: a working copy of the store plus an optional open transaction.
// ---------------------------------------------------------------------------

type session struct {
	h  *Handle
	tx *txState
}

type txState struct {
	snapshot []*node
	nextID   int64
	edges    int64
}

func (s *session) BeginTx() error {
	if s.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	s.h.s.mu.RLock()
	snap := make([]*node, len(s.h.s.nodes))
	copy(snap, s.h.s.nodes)
	nextID := s.h.s.nextID
	edges := s.h.s.edges
	s.h.s.mu.RUnlock()
	s.tx = &txState{snapshot: snap, nextID: nextID, edges: edges}
	return nil
}

func (s *session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	s.h.s.mu.Lock()
	s.h.s.nodes = s.tx.snapshot
	s.h.s.nextID = s.tx.nextID
	s.h.s.edges = s.tx.edges
	s.h.s.mu.Unlock()
	s.tx = nil
	return nil
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	s.tx = nil
	return nil
}

// activeNodes returns the node list this session currently observes: the
// transaction's working copy when one is open, or a live read of the
// handle's committed state otherwise (auto-commit).
func (s *session) activeNodes() *[]*node {
	if s.tx != nil {
		return &s.tx.snapshot
	}
	return &s.h.s.nodes
}

func (s *session) allocID() int64 {
	if s.tx != nil {
		s.tx.nextID++
		return s.tx.nextID
	}
	s.h.s.mu.Lock()
	defer s.h.s.mu.Unlock()
	s.h.s.nextID++
	return s.h.s.nextID
}

func (s *session) commitAutoIfNeeded(mutated bool) {
	if s.tx != nil || !mutated {
		return
	}
	// Auto-commit: execCreate already appended directly to h.s.nodes
	// under lock, nothing further to do.
}

var createRe = regexp.MustCompile(`(?is)^\s*CREATE\s*\(\s*(?:(\w+)\s*)?:(\w+)\s*(?:\{(.*?)\})?\s*\)\s*(?:RETURN\s+(.*))?\s*$`)
var matchRe = regexp.MustCompile(`(?is)^\s*MATCH\s*\(\s*(\w+)\s*:(\w+)\s*\)\s*RETURN\s+(.*)$`)
var propRe = regexp.MustCompile(`(\w+)\s*:\s*('([^']*)'|-?\d+\.\d+|-?\d+|true|false)`)

func (s *session) execute(statement string, params engine.Params) (engine.QueryResult, error) {
	stmt := strings.TrimSpace(statement)

	if m := createRe.FindStringSubmatch(stmt); m != nil {
		return s.execCreate(m, params)
	}
	if m := matchRe.FindStringSubmatch(stmt); m != nil {
		return s.execMatch(m)
	}
	return engine.QueryResult{}, fmt.Errorf("unsupported statement (reference engine understands CREATE/MATCH only): %q", stmt)
}

func (s *session) execCreate(m []string, params engine.Params) (engine.QueryResult, error) {
	start := time.Now()
	varName, label, propsSrc, ret := m[1], m[2], m[3], m[4]

	props := map[string]engine.Value{}
	for _, pm := range propRe.FindAllStringSubmatch(propsSrc, -1) {
		key, raw, quoted := pm[1], pm[2], pm[3]
		switch {
		case raw == "true" || raw == "false":
			props[key] = engine.NewBool(raw == "true")
		case strings.HasPrefix(raw, "'"):
			props[key] = engine.NewString(quoted)
		case strings.Contains(raw, "."):
			f, _ := strconv.ParseFloat(raw, 64)
			props[key] = engine.NewFloat64(f)
		default:
			i, _ := strconv.ParseInt(raw, 10, 64)
			props[key] = engine.NewInt64(i)
		}
	}
	for k, v := range params {
		if strings.Contains(propsSrc, "$"+k) {
			props[k] = v
		}
	}

	n := &node{id: s.allocID(), labels: []string{label}, props: props}

	if s.tx != nil {
		s.tx.snapshot = append(s.tx.snapshot, n)
	} else {
		s.h.s.mu.Lock()
		s.h.s.nodes = append(s.h.s.nodes, n)
		s.h.s.mu.Unlock()
	}

	cols, rows := projectReturn(ret, varName, []*node{n})
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	scanned := uint64(1)
	return engine.QueryResult{
		Columns:         cols,
		ColumnTypes:     typesFor(cols, rows),
		Rows:            rows,
		ExecutionTimeMs: &ms,
		RowsScanned:     &scanned,
	}, nil
}

func (s *session) execMatch(m []string) (engine.QueryResult, error) {
	start := time.Now()
	varName, label, ret := m[1], m[2], m[3]

	var pool []*node
	if s.tx != nil {
		pool = s.tx.snapshot
	} else {
		s.h.s.mu.RLock()
		pool = make([]*node, len(s.h.s.nodes))
		copy(pool, s.h.s.nodes)
		s.h.s.mu.RUnlock()
	}

	matched := make([]*node, 0, len(pool))
	for _, n := range pool {
		if hasLabel(n, label) {
			matched = append(matched, n)
		}
	}

	cols, rows := projectReturn(ret, varName, matched)
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	scanned := uint64(len(pool))
	return engine.QueryResult{
		Columns:         cols,
		ColumnTypes:     typesFor(cols, rows),
		Rows:            rows,
		ExecutionTimeMs: &ms,
		RowsScanned:     &scanned,
	}, nil
}

// projectReturn parses a "RETURN n.name, n.age" clause against the
// matched/created nodes bound to varName.
func projectReturn(ret, varName string, nodes []*node) (cols []string, rows [][]engine.Value) {
	if ret == "" {
		return []string{}, [][]engine.Value{}
	}
	parts := strings.Split(ret, ",")
	props := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		prefix := varName + "."
		if strings.HasPrefix(p, prefix) {
			props = append(props, strings.TrimPrefix(p, prefix))
			cols = append(cols, p)
		} else {
			props = append(props, "")
			cols = append(cols, p)
		}
	}

	rows = make([][]engine.Value, 0, len(nodes))
	for _, n := range nodes {
		row := make([]engine.Value, len(props))
		for i, prop := range props {
			if prop == "" {
				row[i] = engine.Null
				continue
			}
			if v, ok := n.props[prop]; ok {
				row[i] = v
			} else {
				row[i] = engine.Null
			}
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func typesFor(cols []string, rows [][]engine.Value) []engine.LogicalType {
	types := make([]engine.LogicalType, len(cols))
	for i := range types {
		types[i] = engine.TypeNull
		for _, row := range rows {
			if i < len(row) && row[i].Kind != engine.KindNull {
				types[i] = logicalTypeOf(row[i])
				break
			}
		}
	}
	return types
}

func (s *session) ExecuteGQL(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
func (s *session) ExecuteCypher(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
func (s *session) ExecuteGraphQL(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
func (s *session) ExecuteGremlin(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
func (s *session) ExecuteSPARQL(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
func (s *session) ExecuteSQLPGQ(_ context.Context, statement string, params engine.Params) (engine.QueryResult, error) {
	return s.execute(statement, params)
}
