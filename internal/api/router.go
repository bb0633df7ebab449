package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/noteservice"
)

// NewRouter creates a chi router serving rendered pages and the JSON API.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/citekeys", h.Citekeys)
		r.Get("/keywords", h.Keywords)
		r.Get("/keywords/{keyword}", h.KeywordDocuments)
		r.Get("/documents/{key}", h.GetDocument)
		r.Get("/bib", h.Bibliography)
		r.Get("/search", h.Search)
		r.Get("/check", h.Check)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	// Rendered pages.
	r.Get("/", h.Page)
	r.Get("/{name}", h.Page)

	return r
}
