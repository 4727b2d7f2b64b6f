package httpapi

import (
	"net/http"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/valuebridge"
)

func (s *Server) handleSearchVector(w http.ResponseWriter, r *http.Request) {
	var req VectorSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}
	database := defaultDB(req.Database)
	hits, err := s.state.Search.Vector(database, req.Label, req.Property, req.Query, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(hits))
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	var req TextSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}
	database := defaultDB(req.Database)
	hits, err := s.state.Search.Text(database, req.Label, req.Property, req.Query, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(hits))
}

func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	var req HybridSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}
	database := defaultDB(req.Database)
	hits, err := s.state.Search.Hybrid(database, req.Label, req.Property, req.TextQuery, req.VectorQuery, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(hits))
}

func defaultDB(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func toSearchResponse(hits []engine.SearchHit) SearchResponse {
	resp := SearchResponse{Hits: make([]SearchHitJSON, len(hits))}
	for i, h := range hits {
		props := make(map[string]any, len(h.Props))
		for k, v := range h.Props {
			props[k] = valuebridge.EncodeJSON(v)
		}
		resp.Hits[i] = SearchHitJSON{NodeID: h.NodeID, Score: h.Score, Props: props}
	}
	return resp
}
