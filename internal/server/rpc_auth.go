package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

const codeUnauthorized = -32600

// requireToken wraps an http.Handler with Bearer token authentication and
// answers failures with a JSON-RPC error body. When allowQuery is set the
// token may also be passed as ?token=, since browsers cannot attach headers
// to a WebSocket handshake.
//
// If secret is empty, all requests are rejected; RPC requires explicit opt-in.
func requireToken(secret string, allowQuery bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r.Header.Get("Authorization"))
		if !ok && allowQuery {
			token, ok = r.URL.Query().Get("token"), true
		}
		if !ok || !validToken(secret, token) {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// validToken compares in constant time. An empty secret matches nothing.
func validToken(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    codeUnauthorized,
			"message": "Unauthorized",
		},
		"id": nil,
	})
}
