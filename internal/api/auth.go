package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
)

// TokenQueryParam carries the control token for websocket clients, which
// cannot set headers from a browser.
const TokenQueryParam = "token"

// Authorized reports whether r carries the control token, either as
// "Authorization: Bearer <token>" or as ?token=. An empty token authorizes
// everything.
func Authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}

	presented := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		presented = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else {
		presented = r.URL.Query().Get(TokenQueryParam)
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}

// RequireToken creates middleware that rejects requests without the
// control token. With an empty token it is a pass-through.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authorized(r, token) {
				log.Printf("⚠️ Unauthorized %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
				RecordConnectionRejected("unauthorized")
				w.Header().Set("WWW-Authenticate", `Bearer realm="showdown"`)
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
