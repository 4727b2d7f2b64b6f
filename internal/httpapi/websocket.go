package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClientMessage is one inbound WebSocket frame (spec §4.9 "WebSocket
// handler"): either {type:"query", id?, ...QueryRequest} or
// {type:"ping"}.
type wsClientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	QueryRequest
}

// wsServerMessage is one outbound WebSocket frame.
type wsServerMessage struct {
	Type   string  `json:"type"`
	ID     string  `json:"id,omitempty"`
	Error  string  `json:"error,omitempty"`
	Detail string  `json:"detail,omitempty"`
	*QueryResponse
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.wsWriteError(conn, "", apierr.BadRequest("malformed frame"))
			continue
		}

		switch msg.Type {
		case "ping":
			_ = conn.WriteJSON(wsServerMessage{Type: "pong"})
		case "query":
			s.wsHandleQuery(conn, r, msg)
		default:
			s.wsWriteError(conn, msg.ID, apierr.BadRequestf("unknown message type %q", msg.Type))
		}
	}
}

func (s *Server) wsHandleQuery(conn *websocket.Conn, r *http.Request, msg wsClientMessage) {
	lang, err := parseLanguage(msg.Language)
	if err != nil {
		s.wsWriteError(conn, msg.ID, err)
		return
	}

	database := msg.Database
	if database == "" {
		database = "default"
	}
	params, _ := valuebridge.DecodeParams(msg.Params)

	result, err := s.state.Query.Execute(r.Context(), database, lang, msg.Query, params)
	if err != nil {
		s.logError(r, err)
		s.wsWriteError(conn, msg.ID, err)
		return
	}

	resp := toQueryResponse(result)
	_ = conn.WriteJSON(wsServerMessage{Type: "result", ID: msg.ID, QueryResponse: &resp})
}

func (s *Server) wsWriteError(conn *websocket.Conn, id string, err error) {
	se, _ := apierr.As(err)
	kind := "internal"
	detail := err.Error()
	if se != nil {
		kind = string(se.Kind)
		detail = se.Message
	}
	_ = conn.WriteJSON(wsServerMessage{Type: "error", ID: id, Error: kind, Detail: detail})
}
