package httpapi

import "github.com/GrafeoDB/grafeo-server/internal/engine"

// QueryRequest is the body accepted by the auto-commit, transaction-query,
// and WebSocket query paths (spec §4.9 "Request bodies").
type QueryRequest struct {
	Query      string         `json:"query" validate:"required"`
	Params     map[string]any `json:"params,omitempty"`
	Language   string         `json:"language,omitempty"`
	Database   string         `json:"database,omitempty"`
	TimeoutMs  *int64         `json:"timeout_ms,omitempty"`
}

// QueryResponse is the materialized form of a streamed query result (spec
// §4.4/§6). Transport handlers normally stream this shape directly rather
// than constructing the struct, but it documents the on-the-wire contract
// and backs the WebSocket and batch responses where streaming doesn't
// apply.
type QueryResponse struct {
	Columns         []string       `json:"columns"`
	Rows            [][]any        `json:"rows"`
	ExecutionTimeMs *float64       `json:"execution_time_ms,omitempty"`
	RowsScanned     *uint64        `json:"rows_scanned,omitempty"`
}

// ErrorResponse is the body returned for every non-2xx response (spec §6).
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// TxBeginRequest is the optional body for POST /tx/begin.
type TxBeginRequest struct {
	Database string `json:"database,omitempty"`
}

// TransactionResponse is returned by POST /tx/begin.
type TransactionResponse struct {
	SessionID string `json:"session_id"`
}

// StatusResponse is returned by POST /tx/commit and POST /tx/rollback.
type StatusResponse struct {
	Status string `json:"status"`
}

// BatchQueryItem is one entry of a POST /batch request.
type BatchQueryItem struct {
	Query    string         `json:"query" validate:"required"`
	Language string         `json:"language,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// BatchRequest is the body for POST /batch.
type BatchRequest struct {
	Queries   []BatchQueryItem `json:"queries" validate:"required,min=1"`
	Database  string           `json:"database,omitempty"`
	TimeoutMs *int64           `json:"timeout_ms,omitempty"`
}

// CreateDatabaseOptions is the nested `options` object of a create-database
// request (spec §4.1 step 4, §C.4 WAL durability).
type CreateDatabaseOptions struct {
	MemoryLimitBytes uint64 `json:"memory_limit_bytes,omitempty"`
	Threads          int    `json:"threads,omitempty"`
	BackwardEdges    bool   `json:"backward_edges,omitempty"`
	WALEnabled       bool   `json:"wal_enabled,omitempty"`
	WALDurability    string `json:"wal_durability,omitempty"`
	SpillPath        string `json:"spill_path,omitempty"`
}

// CreateDatabaseRequest is the body for POST /db (spec §4.9, supplemented
// by §C.6 schema_filename).
type CreateDatabaseRequest struct {
	Name           string                  `json:"name" validate:"required"`
	DatabaseType   string                  `json:"database_type,omitempty"`
	StorageMode    string                  `json:"storage_mode,omitempty"`
	Options        *CreateDatabaseOptions  `json:"options,omitempty"`
	SchemaFile     string                  `json:"schema_file,omitempty"` // base64
	SchemaFilename string                  `json:"schema_filename,omitempty"`
}

// DatabaseInfo is one entry of GET /db.
type DatabaseInfo struct {
	Name string `json:"name"`
}

// StatsResponse is returned by GET /db/{name}/stats and GET
// /admin/{db}/stats.
type StatsResponse struct {
	NodeCount        uint64  `json:"node_count"`
	EdgeCount        uint64  `json:"edge_count"`
	MemoryUsedBytes  uint64  `json:"memory_used_bytes"`
	DiskUsedBytes    uint64  `json:"disk_used_bytes"`
	MemoryLimitBytes *uint64 `json:"memory_limit_bytes,omitempty"`
}

// SchemaResponse is returned by GET /db/{name}/schema (§C.1).
type SchemaResponse struct {
	Labels []SchemaLabelJSON `json:"labels"`
}

type SchemaLabelJSON struct {
	Name       string              `json:"name"`
	Properties []SchemaPropertyJSON `json:"properties"`
}

type SchemaPropertyJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// WALResponse is returned by GET /admin/{db}/wal.
type WALResponse struct {
	Enabled        bool    `json:"enabled"`
	Durability     string  `json:"durability"`
	PendingBytes   uint64  `json:"pending_bytes"`
	LastCheckpoint *string `json:"last_checkpoint,omitempty"`
}

// ValidateResponse is returned by GET /admin/{db}/validate.
type ValidateResponse struct {
	Valid    bool                    `json:"valid"`
	Errors   []ValidationIssueJSON   `json:"errors"`
	Warnings []ValidationIssueJSON   `json:"warnings"`
}

type ValidationIssueJSON struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// IndexRequest is the tagged-union body for POST/DELETE /admin/{db}/index.
type IndexRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=property vector text"`
	Label      string `json:"label" validate:"required"`
	Property   string `json:"property" validate:"required"`
	Dimensions int    `json:"dimensions,omitempty"`
	Metric     string `json:"metric,omitempty"`
}

func (r IndexRequest) toEngineDef() engine.IndexDef {
	kind := engine.IndexProperty
	switch r.Kind {
	case "vector":
		kind = engine.IndexVector
	case "text":
		kind = engine.IndexText
	}
	return engine.IndexDef{
		Kind:       kind,
		Label:      r.Label,
		Property:   r.Property,
		Dimensions: r.Dimensions,
		Metric:     r.Metric,
	}
}

// SearchHitJSON is one row of a search response.
type SearchHitJSON struct {
	NodeID int64          `json:"node_id"`
	Score  float64        `json:"score"`
	Props  map[string]any `json:"props"`
}

// VectorSearchRequest is the body for POST /search/vector.
type VectorSearchRequest struct {
	Database string    `json:"database,omitempty"`
	Label    string    `json:"label" validate:"required"`
	Property string    `json:"property" validate:"required"`
	Query    []float32 `json:"query" validate:"required"`
	K        int       `json:"k" validate:"required,min=1"`
}

// TextSearchRequest is the body for POST /search/text.
type TextSearchRequest struct {
	Database string `json:"database,omitempty"`
	Label    string `json:"label" validate:"required"`
	Property string `json:"property" validate:"required"`
	Query    string `json:"query" validate:"required"`
	K        int    `json:"k" validate:"required,min=1"`
}

// HybridSearchRequest is the body for POST /search/hybrid.
type HybridSearchRequest struct {
	Database    string    `json:"database,omitempty"`
	Label       string    `json:"label" validate:"required"`
	Property    string    `json:"property" validate:"required"`
	TextQuery   string    `json:"text_query" validate:"required"`
	VectorQuery []float32 `json:"vector_query" validate:"required"`
	K           int       `json:"k" validate:"required,min=1"`
}

// SearchResponse wraps any of the three search endpoints' results.
type SearchResponse struct {
	Hits []SearchHitJSON `json:"hits"`
}

// HealthResponse is returned by GET /health (spec §4.9).
type HealthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	EngineVersion string       `json:"engine_version"`
	Persistent    bool         `json:"persistent"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	ActiveSessions uint64      `json:"active_sessions"`
	Features      FeaturesInfo `json:"features"`
}

type FeaturesInfo struct {
	Languages []string `json:"languages"`
	Engine    []string `json:"engine"`
	Server    []string `json:"server"`
}

// SystemResourcesResponse is returned by GET /system/resources (§C.2).
type SystemResourcesResponse struct {
	TotalMemoryBytes      uint64   `json:"total_memory_bytes"`
	AllocatedMemoryBytes  uint64   `json:"allocated_memory_bytes"`
	AvailableMemoryBytes  uint64   `json:"available_memory_bytes"`
	AvailableDiskBytes    *uint64  `json:"available_disk_bytes,omitempty"`
	PersistentStorage     bool     `json:"persistent_storage"`
	DatabaseTypes         []string `json:"database_types"`
	DefaultMemoryLimit    uint64   `json:"default_memory_limit_bytes"`
	DefaultThreads        int      `json:"default_threads"`
}
