// Package admin implements the administrative surface over a database
// handle (spec §4.8, C8): statistics, schema introspection, integrity
// validation, WAL checkpointing, and index management.
package admin

import (
	"fmt"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

// Service exposes administrative operations scoped to one database at a
// time, resolved by name through the shared database manager.
type Service struct {
	databases *dbmanager.Manager
}

// New constructs an admin Service.
func New(databases *dbmanager.Manager) *Service {
	return &Service{databases: databases}
}

// Stats returns the database's node/edge counts and memory usage.
func (s *Service) Stats(database string) (engine.Stats, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return engine.Stats{}, err
	}
	return handle.Stats(), nil
}

// Schema returns the database's catalogued labels and properties (§C.1 of
// the expanded spec: `GET /db/{name}/schema`).
func (s *Service) Schema(database string) ([]engine.SchemaLabel, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}
	return handle.Schema(), nil
}

// Validate runs an integrity validation pass over the database.
func (s *Service) Validate(database string) (engine.ValidationReport, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return engine.ValidationReport{}, err
	}
	return handle.Validate(), nil
}

// WALStatus reports write-ahead-log health.
func (s *Service) WALStatus(database string) (engine.WALStatus, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return engine.WALStatus{}, err
	}
	return handle.WALStatus(), nil
}

// Checkpoint forces a WAL checkpoint.
func (s *Service) Checkpoint(database string) error {
	handle, err := s.databases.Get(database)
	if err != nil {
		return err
	}
	if err := handle.Checkpoint(); err != nil {
		return apierr.Internal("checkpoint failed", err)
	}
	return nil
}

// CreateIndex creates an index on the database (spec §4.8). Creating the
// same index twice is not itself an error at this layer — the engine
// decides idempotence (spec Testable Property, Idempotence: create then
// drop leaves the index set unchanged, not that a duplicate create fails).
func (s *Service) CreateIndex(database string, def engine.IndexDef) error {
	handle, err := s.databases.Get(database)
	if err != nil {
		return err
	}
	if err := validateIndexDef(def); err != nil {
		return err
	}
	if err := handle.CreateIndex(def); err != nil {
		return apierr.Internal("create index failed", err)
	}
	return nil
}

// DropIndex drops an index on the database.
func (s *Service) DropIndex(database string, def engine.IndexDef) error {
	handle, err := s.databases.Get(database)
	if err != nil {
		return err
	}
	if err := handle.DropIndex(def); err != nil {
		return apierr.Internal("drop index failed", err)
	}
	return nil
}

func validateIndexDef(def engine.IndexDef) error {
	if def.Label == "" || def.Property == "" {
		return apierr.BadRequest("index definition requires label and property")
	}
	if def.Kind == engine.IndexVector && def.Dimensions <= 0 {
		return apierr.BadRequest(fmt.Sprintf("vector index on %s.%s requires positive dimensions", def.Label, def.Property))
	}
	return nil
}
