// Package api implements the jotter development server routes using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Browser credentials. Page navigation and EventSource cannot send an
// Authorization header, so a token passed once as ?access_token= is turned
// into a same-site cookie that later requests carry automatically.
const (
	TokenCookie = "jotter_token"
	TokenQuery  = "access_token"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry the token in an
// "Authorization: Bearer <token>" header, the TokenCookie cookie, or the
// TokenQuery parameter. A valid query token also sets the cookie.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				if !validToken(strings.TrimPrefix(auth, "Bearer "), token) {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if c, err := r.Cookie(TokenCookie); err == nil && validToken(c.Value, token) {
				next.ServeHTTP(w, r)
				return
			}
			if q := r.URL.Query().Get(TokenQuery); q != "" && validToken(q, token) {
				http.SetCookie(w, &http.Cookie{
					Name:     TokenCookie,
					Value:    q,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteStrictMode,
				})
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		})
	}
}

func validToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
