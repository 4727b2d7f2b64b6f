// Package search implements the vector/text/hybrid search façade (spec
// §4.8, C9) over a database handle's search methods.
package search

import (
	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/dbmanager"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
)

// Service exposes vector, text, and hybrid search over a named database.
type Service struct {
	databases *dbmanager.Manager
}

// New constructs a search Service.
func New(databases *dbmanager.Manager) *Service {
	return &Service{databases: databases}
}

// Vector runs a k-nearest-neighbor vector search over label.property.
func (s *Service) Vector(database, label, property string, query []float32, k int) ([]engine.SearchHit, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, apierr.BadRequest("k must be positive")
	}
	hits, err := handle.VectorSearch(label, property, query, k)
	if err != nil {
		return nil, apierr.Internal("vector search failed", err)
	}
	return hits, nil
}

// Text runs a full-text search over label.property.
func (s *Service) Text(database, label, property, query string, k int) ([]engine.SearchHit, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, apierr.BadRequest("k must be positive")
	}
	hits, err := handle.TextSearch(label, property, query, k)
	if err != nil {
		return nil, apierr.Internal("text search failed", err)
	}
	return hits, nil
}

// Hybrid fuses vector and text search over label.property. The exact tie-
// breaking order of the fusion is left to the engine (spec §9 Open
// Questions); this façade only forwards the request.
func (s *Service) Hybrid(database, label, property, textQuery string, vectorQuery []float32, k int) ([]engine.SearchHit, error) {
	handle, err := s.databases.Get(database)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, apierr.BadRequest("k must be positive")
	}
	hits, err := handle.HybridSearch(label, property, textQuery, vectorQuery, k)
	if err != nil {
		return nil, apierr.Internal("hybrid search failed", err)
	}
	return hits, nil
}
