package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded route parameter. Citekeys may carry
// characters clients percent-encode (e.g. note%3Aone).
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// failed writes the error response for err, mapping apperr sentinels
// to status codes.
func failed(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case apperr.Fatal(err):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Page handles GET / and GET /{name}.
//
//	@Summary		Render the index page or a single document
//	@Tags			pages
//	@Produce		html
//	@Param			name	path		string	false	"Citekey or output file name"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{name} [get]
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	page, err := h.svc.Page(r.Context(), name)
	if err != nil {
		failed(w, "render page", err)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

// Citekeys handles GET /api/citekeys.
//
//	@Summary		List every registered citekey
//	@Tags			citekeys
//	@Produce		json
//	@Success		200	{object}	CitekeysResponse
//	@Security		BearerAuth
//	@Router			/api/citekeys [get]
func (h *Handler) Citekeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Citekeys(r.Context())
	if err != nil {
		failed(w, "list citekeys", err)
		return
	}
	writeJSON(w, http.StatusOK, CitekeysResponse{Citekeys: keys})
}

// Keywords handles GET /api/keywords.
//
//	@Summary		List keywords with document counts
//	@Tags			keywords
//	@Produce		json
//	@Success		200	{object}	KeywordsResponse
//	@Security		BearerAuth
//	@Router			/api/keywords [get]
func (h *Handler) Keywords(w http.ResponseWriter, r *http.Request) {
	kws, err := h.svc.Keywords(r.Context())
	if err != nil {
		failed(w, "list keywords", err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordsResponse{Keywords: kws})
}

// KeywordDocuments handles GET /api/keywords/{keyword}.
//
//	@Summary		List the documents carrying a keyword
//	@Tags			keywords
//	@Produce		json
//	@Param			keyword	path		string	true	"Keyword"
//	@Success		200		{object}	KeywordDocumentsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/keywords/{keyword} [get]
func (h *Handler) KeywordDocuments(w http.ResponseWriter, r *http.Request) {
	kw := urlParam(r, "keyword")
	docs, err := h.svc.KeywordDocuments(r.Context(), kw)
	if err != nil {
		failed(w, "keyword documents", err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordDocumentsResponse{Keyword: kw, Documents: docs})
}

// GetDocument handles GET /api/documents/{key}.
//
//	@Summary		Look up the document registered under a citekey
//	@Tags			documents
//	@Produce		json
//	@Param			key		path		string	true	"Citekey"
//	@Param			content	query		bool	false	"Include the raw content"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/documents/{key} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")
	withContent := true
	if v := r.URL.Query().Get("content"); v != "" {
		withContent, _ = strconv.ParseBool(v)
	}
	doc, err := h.svc.Lookup(r.Context(), key, withContent)
	if err != nil {
		failed(w, "lookup citekey", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Bibliography handles GET /api/bib.
//
//	@Summary		Emit bibliography entries as BibTeX
//	@Tags			bibliography
//	@Produce		plain
//	@Param			key		query		[]string	false	"Citekeys; every entry when omitted"
//	@Param			deps	query		bool		false	"Follow crossref dependencies"
//	@Success		200		{string}	string
//	@Security		BearerAuth
//	@Router			/api/bib [get]
func (h *Handler) Bibliography(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deps, _ := strconv.ParseBool(q.Get("deps"))
	entries, warnings, err := h.svc.Bibliography(r.Context(), q["key"], deps)
	if err != nil {
		failed(w, "bibliography", err)
		return
	}
	for _, warn := range warnings {
		w.Header().Add("X-Jotter-Warning", warn.Error())
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(entries, "\n\n")))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		failed(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Check handles GET /api/check.
//
//	@Summary		List citations that resolve to nothing
//	@Tags			check
//	@Produce		json
//	@Success		200	{object}	CheckResponse
//	@Security		BearerAuth
//	@Router			/api/check [get]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	findings, err := h.svc.Check(r.Context())
	if err != nil {
		failed(w, "check", err)
		return
	}
	if findings == nil {
		findings = []noteservice.Finding{}
	}
	writeJSON(w, http.StatusOK, CheckResponse{Findings: findings})
}
