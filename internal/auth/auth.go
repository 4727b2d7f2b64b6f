// Package auth implements the static bearer/basic credential checker (spec
// §4.7, C6), grounded on original_source/crates/grafeo-service/src/auth.rs:
// a single provider configured once at startup from the static token/user/
// password triple, with constant-time comparison to avoid timing side
// channels (crypto/subtle — stdlib, and correctly so: no third-party
// package in the reused stack does constant-time comparison better than
// the standard library's own primitive for this).
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

// Provider checks bearer-token and basic-auth credentials against a single
// static configuration. A zero-value Provider (no token, no user/password)
// is disabled: IsEnabled reports false and every request is allowed.
type Provider struct {
	bearerToken string
	basicUser   string
	basicPass   string
}

// New constructs a Provider. Any empty pair of (basicUser, basicPass)
// disables basic-auth checking specifically; an empty bearerToken disables
// bearer checking specifically. The Provider is enabled if either is set.
func New(bearerToken, basicUser, basicPass string) *Provider {
	return &Provider{bearerToken: bearerToken, basicUser: basicUser, basicPass: basicPass}
}

// IsEnabled reports whether any credential is configured.
func (p *Provider) IsEnabled() bool {
	return p.bearerToken != "" || (p.basicUser != "" && p.basicPass != "")
}

// CheckBearer reports whether token matches the configured bearer token.
func (p *Provider) CheckBearer(token string) bool {
	if p.bearerToken == "" {
		return false
	}
	return ctEq(token, p.bearerToken)
}

// CheckBasic reports whether user/pass match the configured basic-auth
// credentials.
func (p *Provider) CheckBasic(user, pass string) bool {
	if p.basicUser == "" || p.basicPass == "" {
		return false
	}
	return ctEq(user, p.basicUser) && ctEq(pass, p.basicPass)
}

// CheckRequest accepts any of the credential shapes the HTTP/WS surface and
// the streaming-protocol adapter's metadata both support: an
// Authorization: Bearer header, an X-API-Key header (bearer-equivalent),
// or an Authorization: Basic header. It returns true as soon as one
// recognized, matching credential is found.
func (p *Provider) CheckRequest(r *http.Request) bool {
	if !p.IsEnabled() {
		return true
	}
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && p.CheckBearer(apiKey) {
		return true
	}
	authz := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		if p.CheckBearer(token) {
			return true
		}
	}
	if encoded, ok := strings.CutPrefix(authz, "Basic "); ok {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err == nil {
			if user, pass, found := strings.Cut(string(decoded), ":"); found {
				if p.CheckBasic(user, pass) {
					return true
				}
			}
		}
	}
	return false
}

func ctEq(a, b string) bool {
	if len(a) != len(b) {
		// A length mismatch returns false at once: only the content
		// comparison below is constant-time, the length is not hidden.
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
