package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderServerKey authenticates trusted server-side callers on the internal
// API surface.
const HeaderServerKey = "X-Server-Key"

// middlewareServerKey guards privileged endpoints with a static shared key.
//
// Endpoints under the internal prefix bypass user authentication entirely;
// they are meant for trusted backends, never for browsers.
func middlewareServerKey(prefix, key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			if key == "" {
				writeJSON(w, errorResponse{Message: "internal API is disabled"}, http.StatusForbidden)
				return
			}

			got := r.Header.Get(HeaderServerKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, errorResponse{Message: "invalid server key"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
