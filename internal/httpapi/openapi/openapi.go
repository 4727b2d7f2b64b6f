// Package openapi carries the hand-maintained OpenAPI description served
// at GET /openapi.json (§C.3 of the expanded spec). It is not
// code-generated: the document is maintained by hand alongside the route
// table in internal/httpapi, the way C11 is described as owning it.
package openapi

// Document is the full OpenAPI 3.0 description of the HTTP route table
// (spec §4.9).
const Document = `{
  "openapi": "3.0.3",
  "info": { "title": "Grafeo server API", "version": "1.0.0" },
  "paths": {
    "/query": { "post": { "summary": "Execute an auto-commit GQL query" } },
    "/cypher": { "post": { "summary": "Execute an auto-commit Cypher query" } },
    "/graphql": { "post": { "summary": "Execute an auto-commit GraphQL query" } },
    "/gremlin": { "post": { "summary": "Execute an auto-commit Gremlin query" } },
    "/sparql": { "post": { "summary": "Execute an auto-commit SPARQL query" } },
    "/sql": { "post": { "summary": "Execute an auto-commit SQL/PGQ query" } },
    "/batch": { "post": { "summary": "Execute a batch of statements in one transaction" } },
    "/ws": { "get": { "summary": "Upgrade to a WebSocket query session" } },
    "/tx/begin": { "post": { "summary": "Begin a transaction session" } },
    "/tx/query": { "post": { "summary": "Execute a statement within a transaction session" } },
    "/tx/commit": { "post": { "summary": "Commit a transaction session" } },
    "/tx/rollback": { "post": { "summary": "Roll back a transaction session" } },
    "/db": {
      "get": { "summary": "List databases" },
      "post": { "summary": "Create a database" }
    },
    "/db/{name}": {
      "get": { "summary": "Get a database" },
      "delete": { "summary": "Delete a database" }
    },
    "/db/{name}/stats": { "get": { "summary": "Database statistics" } },
    "/db/{name}/schema": { "get": { "summary": "Database schema catalog" } },
    "/admin/{db}/stats": { "get": { "summary": "Admin statistics" } },
    "/admin/{db}/wal": { "get": { "summary": "WAL status" } },
    "/admin/{db}/wal/checkpoint": { "post": { "summary": "Force a WAL checkpoint" } },
    "/admin/{db}/validate": { "get": { "summary": "Run an integrity validation pass" } },
    "/admin/{db}/index": {
      "post": { "summary": "Create an index" },
      "delete": { "summary": "Drop an index" }
    },
    "/search/vector": { "post": { "summary": "Vector k-NN search" } },
    "/search/text": { "post": { "summary": "BM25 text search" } },
    "/search/hybrid": { "post": { "summary": "Hybrid (BM25+vector) search" } },
    "/health": { "get": { "summary": "Health and feature probe" } },
    "/system/resources": { "get": { "summary": "Host/process resource introspection" } },
    "/metrics": { "get": { "summary": "Prometheus-format metrics" } }
  }
}`
