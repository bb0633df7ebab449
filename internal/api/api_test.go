package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/testutil"
)

var treeFiles = map[string]string{
	"a.md": "---\nid: noteA\ntitle: Alpha\nkeywords: [greek]\n---\n\n" +
		"# Intro {#sec:intro}\n\nSee [@refX] and @ghost.\n",
	"b.md":    "---\nid: note:b\nkeywords: [greek, second]\n---\n\nSecond note about quarks.\n",
	"lib.bib": "@collection{coll,\n  title = {C}\n}\n\n@incollection{refX,\n  crossref = {coll}\n}\n",
}

// testEnv sets up a temp tree, SQLite catalog, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) http.Handler {
	t.Helper()

	dir := testutil.Tree(t, treeFiles)
	db, err := index.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := noteservice.NewService(dir, noteservice.WithCatalog(db))
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIndexPage(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("index status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"a.md.html", "lib.bib.html", "greek"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestDocumentPage(t *testing.T) {
	router := testEnv(t, "")

	for _, name := range []string{"/noteA", "/a.md.html"} {
		w := get(t, router, name)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", name, w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `href="lib.bib.html"`) {
			t.Errorf("%s: citation not linked: %s", name, body)
		}
		if strings.Contains(body, "keywords: [greek]") {
			t.Errorf("%s: front matter rendered", name)
		}
	}
}

func TestDocumentPage_NotFound(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/nope.html")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing page = %d, want 404", w.Code)
	}
}

func TestCitekeys(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/citekeys")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CitekeysResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := []string{"coll", "note:b", "noteA", "refX"}
	if strings.Join(resp.Citekeys, ",") != strings.Join(want, ",") {
		t.Errorf("citekeys = %v, want %v", resp.Citekeys, want)
	}
}

func TestKeywords(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/keywords")
	var resp KeywordsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Keywords) != 2 || resp.Keywords[0] != (KeywordCount{Keyword: "greek", Count: 2}) {
		t.Errorf("keywords = %+v", resp.Keywords)
	}

	w = get(t, router, "/api/keywords/second")
	var docs KeywordDocumentsResponse
	if err := json.NewDecoder(w.Body).Decode(&docs); err != nil {
		t.Fatal(err)
	}
	if len(docs.Documents) != 1 || docs.Documents[0].Path != "b.md" {
		t.Errorf("documents = %+v", docs.Documents)
	}

	if w := get(t, router, "/api/keywords/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing keyword = %d, want 404", w.Code)
	}
}

func TestGetDocument(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/documents/note%3Ab")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Path != "b.md" || !strings.Contains(doc.Content, "quarks") {
		t.Errorf("doc = %+v", doc)
	}

	w = get(t, router, "/api/documents/note%3Ab?content=false")
	doc = DocumentDetail{}
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Content != "" {
		t.Errorf("content = %q, want empty", doc.Content)
	}

	if w := get(t, router, "/api/documents/ghost"); w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
}

func TestBibliography(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/bib?key=refX&deps=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	coll, refX := strings.Index(body, "@collection{coll,"), strings.Index(body, "@incollection{refX,")
	if coll < 0 || refX < coll || !strings.Contains(body, "\n\n@incollection") {
		t.Errorf("bib = %q", body)
	}

	w = get(t, router, "/api/bib?key=ghost")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Jotter-Warning") == "" {
		t.Error("expected warning header for unresolved key")
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/search?q=quarks")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Path != "b.md" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")

	if w := get(t, router, "/api/search"); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestCheck(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/api/check")
	var resp CheckResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Findings) != 1 || resp.Findings[0].Key != "ghost" || resp.Findings[0].Path != "a.md" {
		t.Errorf("findings = %+v", resp.Findings)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/api/citekeys", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	if w := get(t, router, "/api/citekeys"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret", sseStub())

	if w := get(t, router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestAuthMiddleware_QueryTokenSetsCookie(t *testing.T) {
	router := testEnv(t, "secret123")

	w := get(t, router, "/?access_token=secret123")
	if w.Code != http.StatusOK {
		t.Fatalf("query token = %d, want 200", w.Code)
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "secret123" || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}

	// The cookie alone authenticates follow-up navigation.
	req := httptest.NewRequest(http.MethodGet, "/a.md.html", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("cookie auth = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_WrongQueryOrCookie(t *testing.T) {
	router := testEnv(t, "secret123")

	w := get(t, router, "/?access_token=nope")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("cookie set for wrong token")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "nope"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong cookie = %d, want 401", w.Code)
	}
}

func TestSSEEvents_CookieAuth(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "tok"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with cookie = %d, want 200", w.Code)
	}
}
