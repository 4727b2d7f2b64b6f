package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeGaugeSource struct {
	databases, nodes, edges, sessions uint64
}

func (f fakeGaugeSource) DatabaseCount() uint64     { return f.databases }
func (f fakeGaugeSource) TotalNodeCount() uint64    { return f.nodes }
func (f fakeGaugeSource) TotalEdgeCount() uint64    { return f.edges }
func (f fakeGaugeSource) ActiveSessionCount() uint64 { return f.sessions }

func TestLanguageLabels(t *testing.T) {
	assert.Equal(t, "gql", LanguageGQL.Label())
	assert.Equal(t, "cypher", LanguageCypher.Label())
	assert.Equal(t, "sql_pgq", LanguageSQLPGQ.Label())
}

func TestRecordQueryAccumulates(t *testing.T) {
	r := NewRegistry(time.Now())
	r.RecordQuery(LanguageGQL, 10*time.Millisecond)
	r.RecordQuery(LanguageGQL, 20*time.Millisecond)
	r.RecordQueryError(LanguageGQL)

	out := r.Render(fakeGaugeSource{})
	assert.Contains(t, out, `grafeo_queries_total{language="gql"} 2`)
	assert.Contains(t, out, `grafeo_query_errors_total{language="gql"} 1`)
	assert.Contains(t, out, `grafeo_query_duration_seconds_count{language="gql"} 2`)
}

func TestRenderIncludesGauges(t *testing.T) {
	r := NewRegistry(time.Now())
	out := r.Render(fakeGaugeSource{databases: 3, nodes: 10, edges: 5, sessions: 2})

	assert.Contains(t, out, "grafeo_databases 3")
	assert.Contains(t, out, "grafeo_nodes_total 10")
	assert.Contains(t, out, "grafeo_edges_total 5")
	assert.Contains(t, out, "grafeo_active_sessions 2")
}

func TestRenderCoversEveryLanguage(t *testing.T) {
	r := NewRegistry(time.Now())
	out := r.Render(fakeGaugeSource{})
	for _, lang := range AllLanguages {
		assert.True(t, strings.Contains(out, `language="`+lang.Label()+`"`), "missing language %s", lang.Label())
	}
}
