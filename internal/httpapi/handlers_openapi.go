package httpapi

import (
	"net/http"

	"github.com/GrafeoDB/grafeo-server/internal/httpapi/openapi"
)

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(openapi.Document))
}
