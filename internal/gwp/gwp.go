// Package gwp implements the streaming-protocol adapter (C12, spec §4.10):
// a gRPC-framed query protocol. Rather than generating stubs from a .proto
// file with protoc, the service is wired up by hand — a grpc.ServiceDesc
// built directly in Go plus a JSON codec registered with the grpc runtime —
// the same "skip the generator, keep the transport" approach the dgraph
// and modusGraph examples take with their own hand-wired gRPC servers.
//
// Each inbound logical session corresponds to exactly one managed engine
// session (spec §4.10): a connection opens against the default database,
// a "session_property" request can switch databases (reopening a fresh
// session against the target), and "reset" restores the default.
package gwp

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/GrafeoDB/grafeo-server/internal/admin"
	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/auth"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/query"
	"github.com/GrafeoDB/grafeo-server/internal/search"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

const codecName = "json"

// jsonCodec lets the gRPC runtime carry plain Go structs over the wire
// without a .proto-generated message type.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Request is the single inbound message shape for the Execute stream.
// Type selects which field group is meaningful.
type Request struct {
	Type string `json:"type"`

	// execute / tx_query
	Language  string         `json:"language,omitempty"`
	Statement string         `json:"statement,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	BatchSize int            `json:"batch_size,omitempty"`

	// session_property
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Frame is the single outbound message shape: header, batch, summary, or
// error, one frame per stream send (spec §4.2/§4.10).
type Frame struct {
	Type string `json:"type"`

	Columns     []string         `json:"columns,omitempty"`
	ColumnTypes []engine.LogicalType `json:"column_types,omitempty"`
	Rows        [][]any          `json:"rows,omitempty"`

	ExecutionTimeUs *int64  `json:"execution_time_us,omitempty"`
	RowsScanned     *uint64 `json:"rows_scanned,omitempty"`
	Success         bool    `json:"success,omitempty"`

	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Server implements the streaming-protocol adapter over the shared core
// services (C4/C7/C8/C9).
type Server struct {
	query     *query.Service
	databases *dbmanager.Manager
	admin     *admin.Service
	search    *search.Service
	auth      *auth.Provider
}

// New builds a streaming-protocol adapter over the given core services.
func New(q *query.Service, databases *dbmanager.Manager, adm *admin.Service, srch *search.Service, authProvider *auth.Provider) *Server {
	return &Server{query: q, databases: databases, admin: adm, search: srch, auth: authProvider}
}

// connState is the one managed engine session a logical gRPC connection
// owns, identified only by the database it is currently bound to — the
// core's session registry already owns the actual engine session inside
// a transaction; outside a transaction, Execute just runs auto-commit
// statements against the bound database.
type connState struct {
	mu           sync.Mutex
	database     string
	txSessionID  string
}

const defaultDatabase = "default"

func newConnState() *connState {
	return &connState{database: defaultDatabase}
}

func (c *connState) currentDatabase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.database
}

func (c *connState) setDatabase(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.database = name
}

func (c *connState) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.database = defaultDatabase
	c.txSessionID = ""
}

// authorize enforces C6 over the gRPC metadata, when auth is configured.
func (s *Server) authorize(ctx context.Context) error {
	if s.auth == nil || !s.auth.IsEnabled() {
		return nil
	}
	token, ok := bearerFromContext(ctx)
	if !ok || !s.auth.CheckBearer(token) {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	return nil
}

// Execute is the bidi-streaming RPC: the client sends a sequence of
// Request frames (execute, tx begin/query/commit/rollback, session
// property changes, reset) and receives a Frame sequence per request —
// Header+Batch*+Summary for a query, or a single Summary-shaped ack for
// control requests.
func (s *Server) Execute(stream grpc.ServerStream) error {
	ctx := stream.Context()
	if err := s.authorize(ctx); err != nil {
		return err
	}

	conn := newConnState()
	for {
		var req Request
		if err := stream.RecvMsg(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := s.handleRequest(ctx, conn, &req, stream); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, conn *connState, req *Request, stream grpc.ServerStream) error {
	switch req.Type {
	case "session_property":
		return s.handleSessionProperty(conn, req, stream)
	case "reset":
		conn.reset()
		return stream.SendMsg(&Frame{Type: "summary", Success: true})
	case "execute":
		return s.handleExecute(ctx, conn, req, stream)
	case "begin":
		return s.handleBegin(conn, stream)
	case "tx_query":
		return s.handleTxQuery(ctx, conn, req, stream)
	case "commit":
		return s.handleCommit(conn, stream)
	case "rollback":
		return s.handleRollback(conn, stream)
	default:
		return stream.SendMsg(&Frame{Type: "error", Error: "bad_request", Detail: "unknown request type"})
	}
}

// handleSessionProperty implements the database-switch property (spec
// §4.10): switching "database" reopens against the target, which here
// just means rebinding the connection's database name — the actual
// engine session is opened lazily on the next execute.
func (s *Server) handleSessionProperty(conn *connState, req *Request, stream grpc.ServerStream) error {
	if req.Property != "database" {
		return stream.SendMsg(&Frame{Type: "summary", Success: true})
	}
	if _, err := s.databases.Get(req.Value); err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	conn.setDatabase(req.Value)
	return stream.SendMsg(&Frame{Type: "summary", Success: true})
}

func (s *Server) handleExecute(ctx context.Context, conn *connState, req *Request, stream grpc.ServerStream) error {
	lang, err := parseLanguage(req.Language)
	if err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	params, _ := valuebridge.DecodeParams(req.Params)

	start := time.Now()
	result, err := s.query.Execute(ctx, conn.currentDatabase(), lang, req.Statement, params)
	if err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	return streamResult(stream, result, req.BatchSize, time.Since(start))
}

func (s *Server) handleBegin(conn *connState, stream grpc.ServerStream) error {
	sess, err := s.query.BeginTx(conn.currentDatabase())
	if err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	conn.mu.Lock()
	conn.txSessionID = sess.ID
	conn.mu.Unlock()
	return stream.SendMsg(&Frame{Type: "summary", Success: true})
}

func (s *Server) handleTxQuery(ctx context.Context, conn *connState, req *Request, stream grpc.ServerStream) error {
	conn.mu.Lock()
	sessionID := conn.txSessionID
	conn.mu.Unlock()
	if sessionID == "" {
		return stream.SendMsg(frameFromError(apierr.BadRequest("no open transaction")))
	}
	lang, err := parseLanguage(req.Language)
	if err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	params, _ := valuebridge.DecodeParams(req.Params)

	start := time.Now()
	result, err := s.query.TxExecute(ctx, sessionID, lang, req.Statement, params)
	if err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	return streamResult(stream, result, req.BatchSize, time.Since(start))
}

func (s *Server) handleCommit(conn *connState, stream grpc.ServerStream) error {
	conn.mu.Lock()
	sessionID := conn.txSessionID
	conn.txSessionID = ""
	conn.mu.Unlock()
	if sessionID == "" {
		return stream.SendMsg(frameFromError(apierr.BadRequest("no open transaction")))
	}
	if err := s.query.Commit(sessionID); err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	return stream.SendMsg(&Frame{Type: "summary", Success: true})
}

func (s *Server) handleRollback(conn *connState, stream grpc.ServerStream) error {
	conn.mu.Lock()
	sessionID := conn.txSessionID
	conn.txSessionID = ""
	conn.mu.Unlock()
	if sessionID == "" {
		return stream.SendMsg(frameFromError(apierr.BadRequest("no open transaction")))
	}
	if err := s.query.Rollback(sessionID); err != nil {
		return stream.SendMsg(frameFromError(err))
	}
	return stream.SendMsg(&Frame{Type: "summary", Success: true})
}

// streamResult frames a QueryResult as Header, one or more Batch frames
// (spec §4.2 C10), and a terminating Summary carrying execution time in
// microseconds and rows-scanned.
func streamResult(stream grpc.ServerStream, result engine.QueryResult, batchSize int, elapsed time.Duration) error {
	if err := stream.SendMsg(&Frame{Type: "header", Columns: result.Columns, ColumnTypes: result.ColumnTypes}); err != nil {
		return err
	}

	if batchSize < 1 {
		batchSize = 1000
	}
	for offset := 0; offset < len(result.Rows) || offset == 0; {
		end := offset + batchSize
		if end > len(result.Rows) {
			end = len(result.Rows)
		}
		batch := result.Rows[offset:end]
		rows := make([][]any, len(batch))
		for i, row := range batch {
			rows[i] = valuebridge.EncodeRow(row)
		}
		if err := stream.SendMsg(&Frame{Type: "batch", Rows: rows}); err != nil {
			return err
		}
		offset = end
		if len(result.Rows) == 0 {
			break
		}
	}

	execUs := elapsed.Microseconds()
	summary := &Frame{Type: "summary", Success: true, ExecutionTimeUs: &execUs}
	if result.RowsScanned != nil {
		summary.RowsScanned = result.RowsScanned
	}
	return stream.SendMsg(summary)
}

func frameFromError(err error) *Frame {
	se, _ := apierr.As(err)
	kind, detail := "internal", err.Error()
	if se != nil {
		kind, detail = string(se.Kind), se.Message
	}
	return &Frame{Type: "error", Error: kind, Detail: detail}
}

func parseLanguage(tag string) (query.Language, error) {
	switch tag {
	case "", "gql":
		return query.LanguageGQL, nil
	case "cypher":
		return query.LanguageCypher, nil
	case "graphql":
		return query.LanguageGraphQL, nil
	case "gremlin":
		return query.LanguageGremlin, nil
	case "sparql":
		return query.LanguageSPARQL, nil
	case "sql", "sql_pgq":
		return query.LanguageSQLPGQ, nil
	default:
		return 0, apierr.BadRequestf("unknown query language %q", tag)
	}
}

// bearerFromContext reads the first "authorization" metadata value off a
// gRPC context, stripping a "Bearer " prefix if present.
func bearerFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}
	const prefix = "Bearer "
	v := values[0]
	if len(v) > len(prefix) && v[:len(prefix)] == prefix {
		return v[len(prefix):], true
	}
	return v, true
}

// ServiceDesc is the hand-authored gRPC service description: no .proto,
// no protoc, just the descriptor grpc.NewServer needs to route the
// Execute stream to Server.Execute.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "grafeo.streaming.QueryService",
	HandlerType: (*any)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Execute",
			Handler:       executeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "grafeo/streaming.proto",
}

func executeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(*Server).Execute(stream)
}

// Register attaches the streaming-protocol adapter to a gRPC server.
func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&ServiceDesc, s)
}
