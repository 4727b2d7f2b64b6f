package httpapi

import (
	"strings"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/query"
)

// parseLanguage maps a request's language tag to a query.Language,
// defaulting to GQL when absent (spec §4.3 Dispatch). Recognized tags:
// gql, cypher, graphql, gremlin, sparql, sql | sql-pgq.
func parseLanguage(tag string) (query.Language, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "gql":
		return query.LanguageGQL, nil
	case "cypher":
		return query.LanguageCypher, nil
	case "graphql":
		return query.LanguageGraphQL, nil
	case "gremlin":
		return query.LanguageGremlin, nil
	case "sparql":
		return query.LanguageSPARQL, nil
	case "sql", "sql-pgq":
		return query.LanguageSQLPGQ, nil
	default:
		return 0, apierr.BadRequestf("unrecognized language %q", tag)
	}
}
