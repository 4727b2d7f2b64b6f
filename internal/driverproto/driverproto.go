// Package driverproto implements the binary driver-protocol adapter (C13,
// spec §4.11): a record-oriented, session-based protocol in the shape of
// the driver standard referenced by spec §7 ("Driver protocol") — HELLO/
// AUTH, RUN, BEGIN, COMMIT, ROLLBACK, GOODBYE messages answered with
// SUCCESS/FAILURE/RECORD. Each message is a 4-byte big-endian length
// prefix followed by a JSON body: the same "skip the external codec
// generator, keep the framing contract" approach internal/gwp takes for
// the gRPC-framed protocol, applied to a plain TCP listener instead of a
// grpc.Server.
//
// Unlike C12, C13 emits no header/summary frames per spec §4.11: each RUN
// produces a flat SUCCESS record carrying columns, then zero or more
// RECORD messages, then a SUCCESS summary dictionary with execution time
// under "t_last" in microseconds.
package driverproto

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/GrafeoDB/grafeo-server/internal/admin"
	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/auth"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/logging"
	"github.com/GrafeoDB/grafeo-server/internal/query"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

const defaultDatabase = "default"

// Message is the single wire shape for both directions; Type selects
// which fields are meaningful, the same tagged-union style the HTTP
// WebSocket adapter uses for its frames.
type Message struct {
	Type string `json:"type"`

	// HELLO / AUTH
	Scheme string `json:"scheme,omitempty"` // "bearer" | "basic" | "none"
	Token  string `json:"token,omitempty"`
	User   string `json:"user,omitempty"`
	Pass   string `json:"pass,omitempty"`

	// RUN
	Database  string         `json:"database,omitempty"`
	Language  string         `json:"language,omitempty"`
	Statement string         `json:"statement,omitempty"`
	Params    map[string]any `json:"params,omitempty"`

	// SESSION_PROPERTY
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`

	// responses
	Columns []string       `json:"columns,omitempty"`
	Row     []any          `json:"row,omitempty"`
	Summary map[string]any `json:"summary,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Server serves the driver protocol over a TCP listener, delegating to
// the same core services as the other adapters (C6/C5/C7).
type Server struct {
	query     *query.Service
	databases *dbmanager.Manager
	admin     *admin.Service
	auth      *auth.Provider
	logger    *logging.Logger

	maxSessions int

	mu       sync.Mutex
	sessions int
}

// New builds a driver-protocol adapter.
func New(q *query.Service, databases *dbmanager.Manager, adm *admin.Service, authProvider *auth.Provider, logger *logging.Logger, maxSessions int) *Server {
	if maxSessions <= 0 {
		maxSessions = 100
	}
	return &Server{query: q, databases: databases, admin: adm, auth: authProvider, logger: logger, maxSessions: maxSessions}
}

// Serve accepts connections on the listener until it is closed or Accept
// fails; each connection is handled on its own goroutine, the
// way a cooperative-I/O server treats one client per task.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.admitSession() {
			_ = writeMessage(conn, &Message{Type: "FAILURE", Code: "too_many_requests", Message: "too many driver-protocol sessions"})
			conn.Close()
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) admitSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions >= s.maxSessions {
		return false
	}
	s.sessions++
	return true
}

func (s *Server) releaseSession() {
	s.mu.Lock()
	s.sessions--
	s.mu.Unlock()
}

type connState struct {
	mu          sync.Mutex
	database    string
	authed      bool
	txSessionID string
}

func (s *Server) handleConn(nc net.Conn) {
	defer s.releaseSession()
	defer nc.Close()

	conn := &connState{database: defaultDatabase}
	reader := bufio.NewReader(nc)

	for {
		msg, err := readMessage(reader)
		if err != nil {
			return
		}
		if err := s.dispatch(nc, conn, msg); err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Warn("driver-protocol connection error")
			}
			return
		}
		if msg.Type == "GOODBYE" {
			return
		}
	}
}

func (s *Server) dispatch(nc net.Conn, conn *connState, msg *Message) error {
	switch msg.Type {
	case "HELLO", "AUTH":
		return s.handleAuth(nc, conn, msg)
	case "SESSION_PROPERTY":
		return s.handleSessionProperty(nc, conn, msg)
	case "RESET":
		conn.mu.Lock()
		conn.database = defaultDatabase
		conn.txSessionID = ""
		conn.mu.Unlock()
		return writeMessage(nc, &Message{Type: "SUCCESS"})
	case "RUN":
		return s.handleRun(nc, conn, msg)
	case "BEGIN":
		return s.handleBegin(nc, conn)
	case "COMMIT":
		return s.handleCommit(nc, conn)
	case "ROLLBACK":
		return s.handleRollback(nc, conn)
	case "GOODBYE":
		return writeMessage(nc, &Message{Type: "SUCCESS"})
	default:
		return writeMessage(nc, failureMessage(apierr.BadRequestf("unknown message type %q", msg.Type)))
	}
}

// handleAuth implements C6's "AUTH method with bearer | basic | none
// variants" (spec §4.6): none is accepted only when no credential of any
// kind (bearer or basic) is configured.
func (s *Server) handleAuth(nc net.Conn, conn *connState, msg *Message) error {
	if s.auth == nil || !s.auth.IsEnabled() {
		conn.mu.Lock()
		conn.authed = true
		conn.mu.Unlock()
		return writeMessage(nc, &Message{Type: "SUCCESS"})
	}

	ok := false
	switch msg.Scheme {
	case "bearer":
		ok = s.auth.CheckBearer(msg.Token)
	case "basic":
		ok = s.auth.CheckBasic(msg.User, msg.Pass)
	case "none":
		ok = false
	}
	if !ok {
		return writeMessage(nc, failureMessage(apierr.Unauthorized("")))
	}
	conn.mu.Lock()
	conn.authed = true
	conn.mu.Unlock()
	return writeMessage(nc, &Message{Type: "SUCCESS"})
}

func (s *Server) requireAuth(conn *connState) error {
	if s.auth != nil && s.auth.IsEnabled() {
		conn.mu.Lock()
		authed := conn.authed
		conn.mu.Unlock()
		if !authed {
			return apierr.Unauthorized("")
		}
	}
	return nil
}

func (s *Server) handleSessionProperty(nc net.Conn, conn *connState, msg *Message) error {
	if err := s.requireAuth(conn); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	if msg.Property != "database" {
		return writeMessage(nc, &Message{Type: "SUCCESS"})
	}
	if _, err := s.databases.Get(msg.Value); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	conn.mu.Lock()
	conn.database = msg.Value
	conn.mu.Unlock()
	return writeMessage(nc, &Message{Type: "SUCCESS"})
}

func (s *Server) handleRun(nc net.Conn, conn *connState, msg *Message) error {
	if err := s.requireAuth(conn); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	lang, err := parseLanguage(msg.Language)
	if err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	params, _ := valuebridge.DecodeParams(msg.Params)

	conn.mu.Lock()
	database, txSessionID := conn.database, conn.txSessionID
	conn.mu.Unlock()

	start := time.Now()
	var result engine.QueryResult
	if txSessionID != "" {
		result, err = s.query.TxExecute(context.Background(), txSessionID, lang, msg.Statement, params)
	} else {
		result, err = s.query.Execute(context.Background(), database, lang, msg.Statement, params)
	}
	if err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	return streamResult(nc, result, time.Since(start))
}

func (s *Server) handleBegin(nc net.Conn, conn *connState) error {
	if err := s.requireAuth(conn); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	conn.mu.Lock()
	database := conn.database
	conn.mu.Unlock()

	sess, err := s.query.BeginTx(database)
	if err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	conn.mu.Lock()
	conn.txSessionID = sess.ID
	conn.mu.Unlock()
	return writeMessage(nc, &Message{Type: "SUCCESS"})
}

func (s *Server) handleCommit(nc net.Conn, conn *connState) error {
	conn.mu.Lock()
	sessionID := conn.txSessionID
	conn.txSessionID = ""
	conn.mu.Unlock()
	if sessionID == "" {
		return writeMessage(nc, failureMessage(apierr.BadRequest("no open transaction")))
	}
	if err := s.query.Commit(sessionID); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	return writeMessage(nc, &Message{Type: "SUCCESS"})
}

func (s *Server) handleRollback(nc net.Conn, conn *connState) error {
	conn.mu.Lock()
	sessionID := conn.txSessionID
	conn.txSessionID = ""
	conn.mu.Unlock()
	if sessionID == "" {
		return writeMessage(nc, failureMessage(apierr.BadRequest("no open transaction")))
	}
	if err := s.query.Rollback(sessionID); err != nil {
		return writeMessage(nc, failureMessage(err))
	}
	return writeMessage(nc, &Message{Type: "SUCCESS"})
}

// streamResult emits a SUCCESS carrying the columns, one RECORD per row
// (flat records, no header/summary frames per spec §4.11), and a
// terminating SUCCESS carrying the t_last summary dictionary entry in
// microseconds.
func streamResult(nc net.Conn, result engine.QueryResult, elapsed time.Duration) error {
	if err := writeMessage(nc, &Message{Type: "SUCCESS", Columns: result.Columns}); err != nil {
		return err
	}
	for _, row := range result.Rows {
		if err := writeMessage(nc, &Message{Type: "RECORD", Row: valuebridge.EncodeRow(row)}); err != nil {
			return err
		}
	}
	summary := map[string]any{"t_last": elapsed.Microseconds(), "type": "r"}
	if result.RowsScanned != nil {
		summary["rows_scanned"] = *result.RowsScanned
	}
	return writeMessage(nc, &Message{Type: "SUCCESS", Summary: summary})
}

func failureMessage(err error) *Message {
	se, _ := apierr.As(err)
	code, message := "internal", err.Error()
	if se != nil {
		code, message = string(se.Kind), se.Message
	}
	return &Message{Type: "FAILURE", Code: code, Message: message}
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

const maxMessageBytes = 16 << 20

func readMessage(r *bufio.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxMessageBytes {
		return nil, errors.New("driverproto: message too large")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func writeMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
