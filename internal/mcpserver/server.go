// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes jotter lookups for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jotter/internal/noteservice"
)

// NoteFormatURI is the resource URI of the note format contract.
const NoteFormatURI = "jotter://note-format"

// Server wraps the MCP server with jotter tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all jotter tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Jotter",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_citekeys",
		mcp.WithDescription("List every citekey registered in the jotter tree."),
	), s.listCitekeys)

	s.mcp.AddTool(mcp.NewTool("lookup_citekey",
		mcp.WithDescription("Describe the document registered under a citekey: path, title, kind, keywords and citing documents."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Citekey (e.g. smith2020 or note:ideas)")),
	), s.lookupCitekey)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw content of the document registered under a citekey."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Citekey of the document")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_keywords",
		mcp.WithDescription("List keywords with the number of documents carrying each."),
	), s.listKeywords)

	s.mcp.AddTool(mcp.NewTool("keyword_documents",
		mcp.WithDescription("List the documents carrying a keyword."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Keyword to look up")),
	), s.keywordDocuments)

	s.mcp.AddTool(mcp.NewTool("get_bibliography",
		mcp.WithDescription("Emit BibTeX entries for citekeys. "+
			"With no keys every entry in the tree is returned. "+
			"Set deps to also emit crossref/xref dependencies, ahead of the entries that need them."),
		mcp.WithArray("keys", mcp.WithStringItems(), mcp.Description("Citekeys to resolve")),
		mcp.WithBoolean("deps", mcp.Description("Follow crossref/xref dependencies")),
	), s.getBibliography)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content, titles, citekeys and keywords."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("check_citations",
		mcp.WithDescription("Report citations that match neither a citekey nor a label of the citing document."),
	), s.checkCitations)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the jotter note format contract. "+
			"Call this before drafting notes to use the expected front matter and citation syntax."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown and BibTeX conventions understood by jotter."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCitekeys(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := s.svc.Citekeys(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(keys, "\n")), nil
}

func (s *Server) lookupCitekey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Lookup(ctx, key, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Lookup(ctx, key, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", key)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) listKeywords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kws, err := s.svc.Keywords(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(kws))
	for i, kw := range kws {
		lines[i] = fmt.Sprintf("%s (%d)", kw.Keyword, kw.Count)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) keywordDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kw, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.svc.KeywordDocuments(ctx, kw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs)
}

func (s *Server) getBibliography(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys := req.GetStringSlice("keys", nil)
	deps := req.GetBool("deps", false)
	entries, warnings, err := s.svc.Bibliography(ctx, keys, deps)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := strings.Join(entries, "\n\n")
	for _, w := range warnings {
		text += "\n\n% warning: " + w.Error()
	}
	return mcp.NewToolResultText(strings.TrimPrefix(text, "\n\n")), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) checkCitations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	findings, err := s.svc.Check(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(findings) == 0 {
		return mcp.NewToolResultText("no unresolved citations"), nil
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = fmt.Sprintf("%s:%d: %s", f.Path, f.Page, f.Key)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
