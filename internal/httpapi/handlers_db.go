package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	names := s.state.Databases.List()
	infos := make([]DatabaseInfo, len(names))
	for i, name := range names {
		infos[i] = DatabaseInfo{Name: name}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req CreateDatabaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.validateStruct(w, &req) {
		return
	}

	graphModel, schemaConstraints, err := resolveDatabaseType(req.DatabaseType)
	if err != nil {
		writeError(w, err)
		return
	}
	if requiresSchemaFile(req.DatabaseType) && req.SchemaFile == "" {
		writeError(w, apierr.BadRequestf("database type %q requires a schema_file", req.DatabaseType))
		return
	}

	opts := dbmanager.CreateOptions{
		GraphModel:        graphModel,
		Persistent:        req.StorageMode == "persistent",
		SchemaConstraints: schemaConstraints,
	}

	if req.Options != nil {
		durability, err := dbmanager.ParseDurability(req.Options.WALDurability)
		if err != nil {
			writeError(w, apierr.BadRequest(err.Error()))
			return
		}
		opts.MemoryLimitBytes = req.Options.MemoryLimitBytes
		opts.Threads = req.Options.Threads
		opts.BackwardEdges = req.Options.BackwardEdges
		opts.WALEnabled = req.Options.WALEnabled
		opts.WALDurability = durability
		opts.SpillPath = req.Options.SpillPath
	}

	if opts.MemoryLimitBytes == 0 {
		opts.MemoryLimitBytes = 512 * 1024 * 1024
	}

	if req.SchemaFile != "" {
		if req.SchemaFilename == "" {
			writeError(w, apierr.BadRequest("schema_filename is required when schema_file is provided"))
			return
		}
		if _, err := base64.StdEncoding.DecodeString(req.SchemaFile); err != nil {
			writeError(w, apierr.BadRequestf("invalid base64 schema_file: %v", err))
			return
		}
		opts.SchemaFilename = req.SchemaFilename
	}

	if err := s.state.Databases.Create(req.Name, opts); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DatabaseInfo{Name: req.Name})
}

func (s *Server) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.state.Databases.Get(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DatabaseInfo{Name: name})
}

func (s *Server) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.state.Databases.Delete(name); err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

func (s *Server) handleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stats, err := s.state.Admin.Stats(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

func (s *Server) handleDatabaseSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	labels, err := s.state.Admin.Schema(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSchemaResponse(labels))
}

func toStatsResponse(stats engine.Stats) StatsResponse {
	return StatsResponse{
		NodeCount:        stats.NodeCount,
		EdgeCount:        stats.EdgeCount,
		MemoryUsedBytes:  stats.MemoryUsedBytes,
		DiskUsedBytes:    stats.DiskUsedBytes,
		MemoryLimitBytes: stats.MemoryLimitBytes,
	}
}

// requiresSchemaFile reports whether databaseType needs a schema_file to
// be created, matching types.rs's DatabaseType::requires_schema_file.
func requiresSchemaFile(databaseType string) bool {
	switch databaseType {
	case "owl-schema", "rdfs-schema", "json-schema":
		return true
	default:
		return false
	}
}

// resolveDatabaseType maps a database_type string to its graph model and
// whether it needs schema-derived constraints applied, matching the
// closed set of variants in types.rs's DatabaseType enum. An empty
// database_type defaults to "lpg"; anything outside the five recognized
// variants is rejected.
func resolveDatabaseType(databaseType string) (engine.GraphModel, bool, error) {
	switch databaseType {
	case "", "lpg":
		return engine.GraphModelLPG, false, nil
	case "rdf":
		return engine.GraphModelRDF, false, nil
	case "owl-schema", "rdfs-schema":
		return engine.GraphModelRDF, false, nil
	case "json-schema":
		return engine.GraphModelLPG, true, nil
	default:
		return "", false, apierr.BadRequestf("unrecognized database_type %q", databaseType)
	}
}

func toSchemaResponse(labels []engine.SchemaLabel) SchemaResponse {
	out := SchemaResponse{Labels: make([]SchemaLabelJSON, len(labels))}
	for i, l := range labels {
		props := make([]SchemaPropertyJSON, len(l.Properties))
		for j, p := range l.Properties {
			props[j] = SchemaPropertyJSON{Name: p.Name, Type: string(p.Type)}
		}
		out.Labels[i] = SchemaLabelJSON{Name: l.Name, Properties: props}
	}
	return out
}
