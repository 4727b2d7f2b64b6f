package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:         "ok",
		Version:        s.version,
		EngineVersion:  s.engineVersion,
		Persistent:     s.state.Databases.DataDir() != "",
		UptimeSeconds:  time.Since(s.state.StartedAt).Seconds(),
		ActiveSessions: s.state.Sessions.ActiveCount(),
		Features: FeaturesInfo{
			Languages: []string{"gql", "cypher", "graphql", "gremlin", "sparql", "sql_pgq"},
			Engine:    []string{"vector_index", "text_index", "hybrid_search"},
			Server:    compiledServerFeatures(s),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func compiledServerFeatures(s *Server) []string {
	features := []string{"http", "websocket"}
	if s.state.Auth.IsEnabled() {
		features = append(features, "auth")
	}
	if s.state.RateLimit.IsEnabled() {
		features = append(features, "rate_limit")
	}
	return features
}

// handleSystemResources implements §C.2 of the expanded spec: total and
// available host memory (gopsutil), available disk space at data_dir's
// partition (when configured), and the compiled-in defaults a client would
// use to size a create-database request.
func (s *Server) handleSystemResources(w http.ResponseWriter, r *http.Request) {
	resp := SystemResourcesResponse{
		PersistentStorage:  s.state.Databases.DataDir() != "",
		AllocatedMemoryBytes: s.state.Databases.TotalAllocatedMemory(),
		DatabaseTypes:      []string{"lpg", "rdf"},
		DefaultMemoryLimit: 512 * 1024 * 1024,
		DefaultThreads:     runtime.NumCPU(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.TotalMemoryBytes = vm.Total
		available := uint64(float64(vm.Total) * 0.8)
		if resp.AllocatedMemoryBytes < available {
			resp.AvailableMemoryBytes = available - resp.AllocatedMemoryBytes
		}
	}

	if dataDir := s.state.Databases.DataDir(); dataDir != "" {
		if usage, err := disk.Usage(dataDir); err == nil {
			free := usage.Free
			resp.AvailableDiskBytes = &free
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.state.Metrics.Render(s.state)))
}
