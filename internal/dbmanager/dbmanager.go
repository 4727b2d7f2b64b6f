// Package dbmanager implements the database registry and lifecycle (spec
// §4.1, C5), grounded on
// original_source/src/database_manager.rs::DatabaseManager: name
// validation, persistent layout under data_dir, legacy-layout migration,
// and the reserved, undeletable "default" database.
package dbmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/engine"
	"github.com/GrafeoDB/grafeo-server/internal/logging"
)

// DefaultDatabase is the name of the reserved database every server starts
// with; it cannot be deleted.
const DefaultDatabase = "default"

// nameRe mirrors database_manager.rs's validation: starts with a letter,
// followed by up to 63 letters/digits/underscore/hyphen (65 chars total
// is rejected, 64 is the maximum accepted length).
var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// ValidateName reports whether name is a legal database name.
func ValidateName(name string) bool {
	return nameRe.MatchString(name)
}

// CreateOptions configures a new database (spec §4.1 step 4, supplemented
// by §C.4/§C.6 of the expanded spec for WAL durability and schema file).
type CreateOptions struct {
	GraphModel        engine.GraphModel
	Persistent        bool
	MemoryLimitBytes  uint64
	Threads           int
	BackwardEdges     bool
	WALEnabled        bool
	WALDurability     engine.DurabilityMode
	SpillPath         string
	SchemaFilename    string
	SchemaConstraints bool
}

// ParseDurability parses a WAL durability mode string, defaulting to
// "adaptive" on empty input and rejecting anything unrecognized, matching
// database_manager.rs::parse_durability.
func ParseDurability(s string) (engine.DurabilityMode, error) {
	switch s {
	case "":
		return engine.DurabilityAdaptive, nil
	case string(engine.DurabilitySync):
		return engine.DurabilitySync, nil
	case string(engine.DurabilityBatch):
		return engine.DurabilityBatch, nil
	case string(engine.DurabilityAdaptive):
		return engine.DurabilityAdaptive, nil
	case string(engine.DurabilityNoSync):
		return engine.DurabilityNoSync, nil
	default:
		return "", fmt.Errorf("invalid wal_durability: %q", s)
	}
}

// entry is one registered database.
type entry struct {
	name       string
	handle     engine.Handle
	persistent bool
	path       string
}

// SessionRemover is implemented by the session registry: deleting a
// database must drop every session still bound to it.
type SessionRemover interface {
	RemoveByDatabase(database string)
}

// Manager is the process-wide database registry.
type Manager struct {
	mu        sync.RWMutex
	databases map[string]*entry
	dataDir   string
	factory   engine.Factory
	sessions  SessionRemover
	logger    *logging.Logger
}

// SetLogger attaches a logger used for Delete's best-effort warnings,
// which must never fail the caller. Safe to leave unset: every call
// site nil-checks it first.
func (m *Manager) SetLogger(logger *logging.Logger) {
	m.logger = logger
}

// New constructs a Manager, running the startup algorithm from spec §4.1:
// migrate a legacy top-level grafeo.db into default/, scan data_dir for
// existing per-database subdirectories, open each (logging and skipping
// individual failures), and create the reserved default database if it
// does not already exist. dataDir == "" means in-memory-only: only the
// default database exists, and it is never persisted.
func New(dataDir string, factory engine.Factory, sessions SessionRemover) (*Manager, error) {
	m := &Manager{
		databases: make(map[string]*entry),
		dataDir:   dataDir,
		factory:   factory,
		sessions:  sessions,
	}

	if dataDir != "" {
		if err := migrateLegacyLayout(dataDir); err != nil {
			return nil, fmt.Errorf("dbmanager: legacy layout migration: %w", err)
		}
		if err := m.scanExisting(); err != nil {
			return nil, fmt.Errorf("dbmanager: scanning data_dir: %w", err)
		}
	}

	if _, ok := m.databases[DefaultDatabase]; !ok {
		opts := CreateOptions{
			GraphModel: engine.GraphModelLPG,
			Persistent: dataDir != "",
		}
		if err := m.create(DefaultDatabase, opts); err != nil {
			return nil, fmt.Errorf("dbmanager: creating reserved default database: %w", err)
		}
	}

	return m, nil
}

// migrateLegacyLayout moves a top-level {data_dir}/grafeo.db (and sibling
// .wal file, if present) into {data_dir}/default/grafeo.db. It is
// idempotent: if the legacy file is absent, or default/ already exists,
// this is a no-op.
func migrateLegacyLayout(dataDir string) error {
	legacyDB := filepath.Join(dataDir, "grafeo.db")
	if _, err := os.Stat(legacyDB); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	defaultDir := filepath.Join(dataDir, DefaultDatabase)
	if _, err := os.Stat(defaultDir); err == nil {
		return nil
	}
	if err := os.MkdirAll(defaultDir, 0o755); err != nil {
		return err
	}

	if err := os.Rename(legacyDB, filepath.Join(defaultDir, "grafeo.db")); err != nil {
		return err
	}

	legacyWAL := legacyDB + ".wal"
	if _, err := os.Stat(legacyWAL); err == nil {
		_ = os.Rename(legacyWAL, filepath.Join(defaultDir, "grafeo.db.wal"))
	}
	return nil
}

// scanExisting opens every {data_dir}/{name}/grafeo.db subdirectory found.
// An individual database failing to open is skipped rather than aborting
// the whole startup; the failure is not logged.
func (m *Manager) scanExisting() error {
	entries, err := os.ReadDir(m.dataDir)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	for _, de := range entries {
		if !de.IsDir() || !ValidateName(de.Name()) {
			continue
		}
		dbFile := filepath.Join(m.dataDir, de.Name(), "grafeo.db")
		if _, err := os.Stat(dbFile); err != nil {
			continue
		}
		opts := CreateOptions{GraphModel: engine.GraphModelLPG, Persistent: true}
		if err := m.create(de.Name(), opts); err != nil {
			// Startup only aborts if the reserved default fails (spec §7);
			// any other individual database failing to open is skipped.
			continue
		}
	}
	return nil
}

// Get resolves a database handle by name.
func (m *Manager) Get(name string) (engine.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.databases[name]
	if !ok {
		return nil, apierr.NotFoundf("database %q not found", name)
	}
	return e.handle, nil
}

// Create registers and opens a new database. Returns apierr.Conflict if
// name is already in use, apierr.BadRequest if name fails validation or
// Persistent is requested with no data_dir configured.
func (m *Manager) Create(name string, opts CreateOptions) error {
	if !ValidateName(name) {
		return apierr.BadRequestf("invalid database name %q", name)
	}
	if opts.Persistent && m.dataDir == "" {
		return apierr.BadRequest("persistent database requested but no data_dir is configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.databases[name]; exists {
		return apierr.Conflict(fmt.Sprintf("database %q already exists", name))
	}
	return m.create(name, opts)
}

// create assembles the engine config, opens the handle, and registers the
// entry. Caller must hold m.mu for writing (or be constructing m before
// any other goroutine can observe it).
func (m *Manager) create(name string, opts CreateOptions) error {
	cfg := engine.Config{
		GraphModel:        opts.GraphModel,
		MemoryLimitBytes:  opts.MemoryLimitBytes,
		Threads:           opts.Threads,
		BackwardEdges:     opts.BackwardEdges,
		WALEnabled:        opts.WALEnabled,
		WALDurability:     opts.WALDurability,
		SpillPath:         opts.SpillPath,
		SchemaConstraints: opts.SchemaConstraints,
	}

	var path string
	if opts.Persistent {
		path = filepath.Join(m.dataDir, name, "grafeo.db")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return apierr.Internal("creating database directory", err)
		}
		cfg.Path = path
	}

	handle, err := m.factory(cfg)
	if err != nil {
		return apierr.Internal(fmt.Sprintf("opening engine handle for database %q", name), err)
	}

	if opts.SchemaFilename != "" {
		if err := loadSchemaFile(handle, opts.SchemaFilename); err != nil {
			_ = handle.Close()
			if opts.Persistent {
				_ = os.RemoveAll(filepath.Join(m.dataDir, name))
			}
			return apierr.BadRequestf("loading schema file %q: %v", opts.SchemaFilename, err)
		}
	}

	m.databases[name] = &entry{name: name, handle: handle, persistent: opts.Persistent, path: path}
	return nil
}

// loadSchemaFile dispatches on the schema file's extension (OWL/RDFS/JSON
// Schema, per §C.6) and applies it to the freshly opened handle. The
// reference engine has no schema catalog of its own to populate beyond
// what CreateIndex already models, so this is a no-op validation pass: it
// only confirms the extension is one of the three supported kinds.
func loadSchemaFile(_ engine.Handle, filename string) error {
	switch filepath.Ext(filename) {
	case ".owl", ".rdfs", ".json":
		return nil
	default:
		return fmt.Errorf("unrecognized schema file extension %q", filepath.Ext(filename))
	}
}

// Delete removes a database: closes its engine handle, drops every
// session still bound to it, and (if persistent) removes its on-disk
// directory. The reserved default database cannot be deleted.
//
// The in-memory removal is the success boundary (database_manager.rs's
// delete()): once name is found and dropped from the registry, Delete
// always returns nil. A failure to close the engine handle or to remove
// the on-disk directory is logged, not surfaced to the caller, since the
// database is already gone as far as every client can observe.
func (m *Manager) Delete(name string) error {
	if name == DefaultDatabase {
		return apierr.BadRequest("the default database cannot be deleted")
	}

	m.mu.Lock()
	e, ok := m.databases[name]
	if !ok {
		m.mu.Unlock()
		return apierr.NotFoundf("database %q not found", name)
	}
	delete(m.databases, name)
	m.mu.Unlock()

	if m.sessions != nil {
		m.sessions.RemoveByDatabase(name)
	}

	if err := e.handle.Close(); err != nil {
		m.warnf(err, "error closing database %q", name)
	}

	if e.persistent {
		if err := os.RemoveAll(filepath.Dir(e.path)); err != nil {
			m.warnf(err, "failed to remove database %q directory", name)
		}
	}
	return nil
}

// warnf logs a best-effort failure through the attached logger, if any.
func (m *Manager) warnf(err error, format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	m.logger.WithError(err).Warn(fmt.Sprintf(format, args...))
}

// List returns every registered database name.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.databases))
	for name := range m.databases {
		names = append(names, name)
	}
	return names
}

// DataDir returns the configured persistent data directory, or "" if the
// server is running in-memory-only.
func (m *Manager) DataDir() string { return m.dataDir }

// TotalAllocatedMemory sums every open database's reported memory usage.
func (m *Manager) TotalAllocatedMemory() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, e := range m.databases {
		total += e.handle.Stats().MemoryUsedBytes
	}
	return total
}

// Count returns the number of open databases.
func (m *Manager) Count() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.databases))
}

// TotalNodeCount sums NodeCount across every open database.
func (m *Manager) TotalNodeCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, e := range m.databases {
		total += e.handle.NodeCount()
	}
	return total
}

// TotalEdgeCount sums EdgeCount across every open database.
func (m *Manager) TotalEdgeCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, e := range m.databases {
		total += e.handle.EdgeCount()
	}
	return total
}
