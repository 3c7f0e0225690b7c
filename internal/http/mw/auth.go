// Package mw contains HTTP middleware.
package mw

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// Capability levels. UI accepts either key; Admin requires the API key.
type Capability int

const (
	CapabilityUI Capability = iota
	CapabilityAdmin
)

// Keys holds the configured shared secrets. An empty key disables the
// capability it guards.
type Keys struct {
	UIKey  string // x-ui-key header
	APIKey string // x-api-key header
}

// Auth returns middleware enforcing the given capability via shared-secret
// headers. The admin key is accepted wherever the UI key is.
func Auth(keys Keys, capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(keys, capability, r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":    false,
					"error": "unauthorized",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(keys Keys, capability Capability, r *http.Request) bool {
	apiKey := r.Header.Get("x-api-key")
	if equal(apiKey, keys.APIKey) {
		return true
	}
	if capability == CapabilityAdmin {
		return false
	}
	return equal(r.Header.Get("x-ui-key"), keys.UIKey)
}

func equal(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
