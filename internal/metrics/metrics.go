// Package metrics implements the per-language query counters and the
// Prometheus exposition-format renderer (spec §4.2, C2), grounded on
// atomic counters, and adapted to write literal exposition text the way
// the service_layer teacher's infrastructure/metrics package wires
// prometheus.CounterVec/HistogramVec into a registry — here rendered by
// hand because the counter set (per-language, fixed cardinality) is known
// upfront and the distilled spec calls for a specific literal text format
// rather than the full client_golang registry surface.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Language is one of the six query languages the service can dispatch to.
type Language int

const (
	LanguageGQL Language = iota
	LanguageCypher
	LanguageGraphQL
	LanguageGremlin
	LanguageSPARQL
	LanguageSQLPGQ
)

// AllLanguages lists every language in stable rendering order.
var AllLanguages = [...]Language{
	LanguageGQL, LanguageCypher, LanguageGraphQL, LanguageGremlin, LanguageSPARQL, LanguageSQLPGQ,
}

// Label returns the exposition-format label for l.
func (l Language) Label() string {
	switch l {
	case LanguageGQL:
		return "gql"
	case LanguageCypher:
		return "cypher"
	case LanguageGraphQL:
		return "graphql"
	case LanguageGremlin:
		return "gremlin"
	case LanguageSPARQL:
		return "sparql"
	case LanguageSQLPGQ:
		return "sql_pgq"
	default:
		return "unknown"
	}
}

// languageMetrics holds the four atomic counters tracked per language.
type languageMetrics struct {
	queries       atomic.Uint64
	errors        atomic.Uint64
	durationSumUs atomic.Uint64
	durationCount atomic.Uint64
}

// Registry is the process-wide metrics collector: one counter set per
// language plus the gauges sourced from the database manager and session
// registry at render time.
type Registry struct {
	perLanguage map[Language]*languageMetrics
	startedAt   time.Time
}

// NewRegistry constructs an empty Registry. startedAt is recorded for the
// uptime gauge; pass time.Now() at process start.
func NewRegistry(startedAt time.Time) *Registry {
	r := &Registry{
		perLanguage: make(map[Language]*languageMetrics, len(AllLanguages)),
		startedAt:   startedAt,
	}
	for _, lang := range AllLanguages {
		r.perLanguage[lang] = &languageMetrics{}
	}
	return r
}

// RecordQuery records one successful query's latency for lang.
func (r *Registry) RecordQuery(lang Language, d time.Duration) {
	lm := r.perLanguage[lang]
	lm.queries.Add(1)
	lm.durationSumUs.Add(uint64(d.Microseconds()))
	lm.durationCount.Add(1)
}

// RecordQueryError records one failed query for lang. Errors do not add to
// duration statistics, matching the reference engine's semantics of
// recording latency only for completed executions.
func (r *Registry) RecordQueryError(lang Language) {
	r.perLanguage[lang].errors.Add(1)
}

// GaugeSource supplies the process-wide gauges rendered alongside the
// per-language counters. A caller (internal/service) implements this over
// the live database manager and session registry.
type GaugeSource interface {
	DatabaseCount() uint64
	TotalNodeCount() uint64
	TotalEdgeCount() uint64
	ActiveSessionCount() uint64
}

// Render produces the full Prometheus text-exposition payload (spec §4.2):
// gauges first, then per-language counters/errors/duration sum/count, each
// preceded by its own HELP and TYPE lines, one sample line per language.
func (r *Registry) Render(gauges GaugeSource) string {
	var b strings.Builder

	writeGauge(&b, "grafeo_databases", "Number of open databases.", float64(gauges.DatabaseCount()))
	writeGauge(&b, "grafeo_nodes_total", "Total node count across open databases.", float64(gauges.TotalNodeCount()))
	writeGauge(&b, "grafeo_edges_total", "Total edge count across open databases.", float64(gauges.TotalEdgeCount()))
	writeGauge(&b, "grafeo_active_sessions", "Number of active transaction sessions.", float64(gauges.ActiveSessionCount()))
	writeGauge(&b, "grafeo_uptime_seconds", "Seconds since the process started.", time.Since(r.startedAt).Seconds())

	r.writeCounter(&b, "grafeo_queries_total", "Total queries executed, by language.", func(lm *languageMetrics) float64 {
		return float64(lm.queries.Load())
	})
	r.writeCounter(&b, "grafeo_query_errors_total", "Total query errors, by language.", func(lm *languageMetrics) float64 {
		return float64(lm.errors.Load())
	})
	r.writeCounter(&b, "grafeo_query_duration_seconds_sum", "Sum of query durations in seconds, by language.", func(lm *languageMetrics) float64 {
		return float64(lm.durationSumUs.Load()) / 1e6
	})
	r.writeCounter(&b, "grafeo_query_duration_seconds_count", "Count of queries contributing to the duration sum, by language.", func(lm *languageMetrics) float64 {
		return float64(lm.durationCount.Load())
	})

	return b.String()
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %s\n", name, formatFloat(value))
}

func (r *Registry) writeCounter(b *strings.Builder, name, help string, extract func(*languageMetrics) float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	for _, lang := range AllLanguages {
		fmt.Fprintf(b, "%s{language=%q} %s\n", name, lang.Label(), formatFloat(extract(r.perLanguage[lang])))
	}
}

func formatFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}
