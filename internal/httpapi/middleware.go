package httpapi

import (
	"net/http"

	"github.com/GrafeoDB/grafeo-server/internal/apierr"
	"github.com/GrafeoDB/grafeo-server/internal/auth"
	"github.com/GrafeoDB/grafeo-server/internal/logging"
	"github.com/GrafeoDB/grafeo-server/internal/ratelimit"
)

// exemptPaths lists endpoints the auth middleware never protects (spec
// §4.7 "Exempt endpoints"): health and metrics, regardless of method.
var exemptPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// corsMiddleware implements spec §4.9's CORS contract, adapted from the
// teacher's infrastructure/middleware/cors.go: no configured origins means
// no cross-origin headers at all; a single "*" allows any origin; anything
// else is an explicit allow-list.
func corsMiddleware(origins []string, logger *logging.Logger) func(http.Handler) http.Handler {
	allowAny := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	if allowAny && logger != nil {
		logger.Warn("CORS configured with wildcard origin \"*\": any origin will be allowed")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if len(origins) > 0 && origin != "" {
				if allowAny {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if allowed[origin] {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				if allowAny || allowed[origin] {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "content-type, authorization, x-session-id, x-api-key, x-request-id")
					w.Header().Set("Access-Control-Expose-Headers", "x-request-id")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware reads X-Request-Id if present, otherwise synthesizes
// a v4 UUID, injects it into the request context, and stamps it onto the
// response (spec §4.9).
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := logging.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware denies with an empty 429 body when the limiter
// denies (spec §4.9). Exempt endpoints always allow, matching the auth
// exemption list.
func rateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Check(ratelimit.ClientKey(r)) {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware returns 401 on any failure and passes through when no
// credential is configured or the path is exempt (spec §4.7/§4.9).
func authMiddleware(provider *auth.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !provider.CheckRequest(r) {
				writeError(w, apierr.Unauthorized(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
