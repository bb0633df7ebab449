package mcpserver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/testutil"
)

var treeFiles = map[string]string{
	"a.md": "---\nid: noteA\nkeywords: [physics]\n---\n\n" +
		"# Quarks {#sec:quarks}\n\nCharm and strange, see [@refX] and @missing.\n",
	"lib.bib": "@collection{coll,\n  title = {C}\n}\n\n@incollection{refX,\n  crossref = {coll}\n}\n",
}

func testServer(t *testing.T) *Server {
	t.Helper()

	dir := testutil.Tree(t, treeFiles)
	db, err := index.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return New(noteservice.NewService(dir, noteservice.WithCatalog(db)), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_citekeys":     srv.listCitekeys,
		"lookup_citekey":    srv.lookupCitekey,
		"read_document":     srv.readDocument,
		"list_keywords":     srv.listKeywords,
		"keyword_documents": srv.keywordDocuments,
		"get_bibliography":  srv.getBibliography,
		"search_documents":  srv.searchDocuments,
		"check_citations":   srv.checkCitations,
		"get_note_contract": srv.getNoteContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListCitekeys(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_citekeys", nil)
	if text := resultText(r); text != "coll\nnoteA\nrefX" {
		t.Errorf("citekeys = %q", text)
	}
}

func TestLookupAndRead(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "lookup_citekey", map[string]any{"key": "refX"})
	if r.IsError || !strings.Contains(resultText(r), `"path": "lib.bib"`) {
		t.Errorf("lookup = %q", resultText(r))
	}

	r = callTool(t, srv, "read_document", map[string]any{"key": "noteA"})
	if !strings.Contains(resultText(r), "# Quarks {#sec:quarks}") {
		t.Errorf("read = %q", resultText(r))
	}

	r = callTool(t, srv, "read_document", map[string]any{"key": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}

	r = callTool(t, srv, "lookup_citekey", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing key argument")
	}
}

func TestKeywordTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_keywords", nil)
	if text := resultText(r); text != "physics (1)" {
		t.Errorf("keywords = %q", text)
	}

	r = callTool(t, srv, "keyword_documents", map[string]any{"keyword": "physics"})
	if !strings.Contains(resultText(r), `"path": "a.md"`) {
		t.Errorf("keyword documents = %q", resultText(r))
	}

	r = callTool(t, srv, "keyword_documents", map[string]any{"keyword": "chemistry"})
	if !r.IsError {
		t.Error("expected error for unknown keyword")
	}
}

func TestGetBibliography(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_bibliography", map[string]any{"keys": []any{"refX"}, "deps": true})
	text := resultText(r)
	coll, refX := strings.Index(text, "@collection{coll,"), strings.Index(text, "@incollection{refX,")
	if coll < 0 || refX < coll {
		t.Errorf("bibliography = %q", text)
	}

	r = callTool(t, srv, "get_bibliography", map[string]any{"keys": []any{"ghost"}})
	if text := resultText(r); !strings.HasPrefix(text, "% warning:") || !strings.Contains(text, "ghost") {
		t.Errorf("unresolved = %q", text)
	}
}

func TestSearchAndCheck(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "search_documents", map[string]any{"query": "charm"})
	if !strings.Contains(resultText(r), `"path": "a.md"`) {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "check_citations", nil)
	if text := resultText(r); !strings.Contains(text, "a.md:") || !strings.HasSuffix(text, ": missing") {
		t.Errorf("check = %q", text)
	}
}

func TestNoteContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_note_contract", nil)
	if !strings.HasPrefix(resultText(r), "# Jotter Note Format Contract") {
		t.Errorf("contract = %q", resultText(r))
	}

	contents, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != NoteFormatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
