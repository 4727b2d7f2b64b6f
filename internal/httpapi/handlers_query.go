package httpapi

import (
	"net/http"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/query"
	"github.com/GrafeoDB/grafeo-server/internal/stream"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

// handleExecute returns the handler for an auto-commit query endpoint.
// forcedLanguage is "" for POST /query (language comes from the request
// body) or one of the convenience endpoints' fixed language tag.
func (s *Server) handleExecute(forcedLanguage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !s.validateStruct(w, &req) {
			return
		}

		langTag := req.Language
		if forcedLanguage != "" {
			langTag = forcedLanguage
		}
		lang, err := parseLanguage(langTag)
		if err != nil {
			writeError(w, err)
			return
		}

		params, _ := valuebridge.DecodeParams(req.Params)

		database := req.Database
		if database == "" {
			database = "default"
		}

		ctx := r.Context()
		if d := timeoutFromMs(req.TimeoutMs); d > 0 {
			var cancel func()
			ctx, cancel = contextWithTimeout(ctx, d)
			defer cancel()
		}

		result, err := s.state.Query.Execute(ctx, database, lang, req.Query, params)
		if err != nil {
			s.logError(r, err)
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := stream.WriteJSON(w, result, s.batchSize); err != nil {
			s.logError(r, err)
		}
	}
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}

	database := req.Database
	if database == "" {
		database = "default"
	}

	statements := make([]query.Statement, 0, len(req.Queries))
	for _, item := range req.Queries {
		lang, err := parseLanguage(item.Language)
		if err != nil {
			writeError(w, err)
			return
		}
		params, _ := valuebridge.DecodeParams(item.Params)
		statements = append(statements, query.Statement{Language: lang, Statement: item.Query, Params: params})
	}

	ctx := r.Context()
	if d := timeoutFromMs(req.TimeoutMs); d > 0 {
		var cancel func()
		ctx, cancel = contextWithTimeout(ctx, d)
		defer cancel()
	}

	results, err := s.state.Query.BatchExecute(ctx, database, statements)
	if err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}

	responses := make([]QueryResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, toQueryResponse(result))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleTxBegin(w http.ResponseWriter, r *http.Request) {
	var req TxBeginRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	database := req.Database
	if database == "" {
		database = "default"
	}

	sess, err := s.state.Query.BeginTx(database)
	if err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransactionResponse{SessionID: sess.ID})
}

func (s *Server) handleTxQuery(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-Id")
	if sessionID == "" {
		writeError(w, apierr.SessionNotFound())
		return
	}

	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}

	lang, err := parseLanguage(req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	params, _ := valuebridge.DecodeParams(req.Params)

	ctx := r.Context()
	if d := timeoutFromMs(req.TimeoutMs); d > 0 {
		var cancel func()
		ctx, cancel = contextWithTimeout(ctx, d)
		defer cancel()
	}

	result, err := s.state.Query.TxExecute(ctx, sessionID, lang, req.Query, params)
	if err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := stream.WriteJSON(w, result, s.batchSize); err != nil {
		s.logError(r, err)
	}
}

func (s *Server) handleTxCommit(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-Id")
	if sessionID == "" {
		writeError(w, apierr.SessionNotFound())
		return
	}
	if err := s.state.Query.Commit(sessionID); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "committed"})
}

func (s *Server) handleTxRollback(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-Id")
	if sessionID == "" {
		writeError(w, apierr.SessionNotFound())
		return
	}
	if err := s.state.Query.Rollback(sessionID); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "rolled_back"})
}

func toQueryResponse(result engine.QueryResult) QueryResponse {
	rows := make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = valuebridge.EncodeRow(row)
	}
	return QueryResponse{
		Columns:         result.Columns,
		Rows:            rows,
		ExecutionTimeMs: result.ExecutionTimeMs,
		RowsScanned:     result.RowsScanned,
	}
}
