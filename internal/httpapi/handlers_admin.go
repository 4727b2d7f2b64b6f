package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	stats, err := s.state.Admin.Stats(db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

func (s *Server) handleAdminWAL(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	status, err := s.state.Admin.WALStatus(db)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := WALResponse{Enabled: status.Enabled, Durability: status.Durability, PendingBytes: status.PendingBytes}
	if status.LastCheckpoint != nil {
		s := status.LastCheckpoint.UTC().Format(rfc3339Nano)
		resp.LastCheckpoint = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"

func (s *Server) handleAdminCheckpoint(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	if err := s.state.Admin.Checkpoint(db); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "checkpointed"})
}

func (s *Server) handleAdminValidate(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	report, err := s.state.Admin.Validate(db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidateResponse(report))
}

func toValidateResponse(report engine.ValidationReport) ValidateResponse {
	resp := ValidateResponse{Valid: report.Valid}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, ValidationIssueJSON{Code: e.Code, Message: e.Message, Context: e.Context})
	}
	for _, wrn := range report.Warnings {
		resp.Warnings = append(resp.Warnings, ValidationIssueJSON{Code: wrn.Code, Message: wrn.Message, Context: wrn.Context})
	}
	return resp
}

func (s *Server) handleAdminCreateIndex(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	var req IndexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}
	if err := s.state.Admin.CreateIndex(db, req.toEngineDef()); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "created"})
}

func (s *Server) handleAdminDropIndex(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")
	var req IndexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}
	if err := s.state.Admin.DropIndex(db, req.toEngineDef()); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "dropped"})
}
