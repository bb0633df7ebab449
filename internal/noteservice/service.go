// Package noteservice combines survey, bibliography, rendering and catalog
// operations behind one facade shared by the CLI, the HTTP server and the
// MCP server. Every call surveys the tree again.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/bib"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/render"
	"github.com/starford/jotter/internal/site"
	"github.com/starford/jotter/internal/survey"
	"github.com/starford/jotter/internal/tags"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path     string         `json:"path"`
	Title    string         `json:"title"`
	Kind     string         `json:"kind"`
	Citekeys []string       `json:"citekeys"`
	Keywords []string       `json:"keywords"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Bibtex   string         `json:"bibtex,omitempty"`
	Content  string         `json:"content,omitempty"`
	CitedBy  []string       `json:"cited_by"`
	Output   string         `json:"output"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Kind     string   `json:"kind"`
	Citekeys []string `json:"citekeys"`
}

// KeywordCount pairs a keyword with the number of documents carrying it.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Service coordinates survey, rendering and catalog operations for one tree.
type Service struct {
	root     string
	logger   *slog.Logger
	renderer *render.Renderer
	catalog  index.Catalog
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger that receives survey warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRenderer sets the renderer used for pages.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithCatalog enables search and citation lookups backed by db.
func WithCatalog(db index.Catalog) Option {
	return func(s *Service) { s.catalog = db }
}

// NewService creates a service for the tree at root.
func NewService(root string, opts ...Option) *Service {
	s := &Service{root: root}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}
	return s
}

// Root returns the tree root.
func (s *Service) Root() string { return s.root }

// Survey indexes the tree. Warnings are logged.
func (s *Service) Survey(ctx context.Context) (*survey.Result, error) {
	return survey.Survey(ctx, s.root, survey.Options{Logger: s.logger})
}

func (s *Service) index(ctx context.Context) (*models.Index, error) {
	res, err := s.Survey(ctx)
	if err != nil {
		return nil, err
	}
	return res.Index, nil
}

// Citekeys returns every citekey, sorted.
func (s *Service) Citekeys(ctx context.Context) ([]string, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(idx.Citekeys()), nil
}

// Keywords returns every keyword with its document count, sorted by keyword.
func (s *Service) Keywords(ctx context.Context) ([]KeywordCount, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	out := []KeywordCount{}
	for _, kw := range idx.Keywords() {
		out = append(out, KeywordCount{Keyword: kw, Count: idx.KeywordCount(kw)})
	}
	return out, nil
}

// KeywordDocuments returns the documents carrying keyword, sorted by path.
func (s *Service) KeywordDocuments(ctx context.Context, keyword string) ([]DocumentListItem, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	docs := idx.ByKeyword(keyword)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no such keyword %q", apperr.ErrNotFound, keyword)
	}
	items := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		items[i] = listItem(d)
	}
	slices.SortFunc(items, func(a, b DocumentListItem) int { return strings.Compare(a.Path, b.Path) })
	return items, nil
}

// Lookup returns the document registered under key. The content is
// included when withContent is set.
func (s *Service) Lookup(ctx context.Context, key string, withContent bool) (*DocumentDetail, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := idx.ByCitekey(key)
	if !ok {
		return nil, fmt.Errorf("%w: citekey %q", apperr.ErrNotFound, key)
	}
	d := s.detail(doc)
	if withContent {
		content, err := survey.Content(doc)
		if err != nil {
			return nil, err
		}
		d.Content = content
	}
	return d, nil
}

// Bibliography returns the entries for keys joined by blank lines. With no
// keys every entry of the tree is returned. Unresolved keys are collected
// in warnings.
func (s *Service) Bibliography(ctx context.Context, keys []string, followDeps bool) (entries []string, warnings []error, err error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		for e := range bib.All(idx) {
			entries = append(entries, e)
		}
		return entries, nil, nil
	}
	r := bib.NewResolver(idx, followDeps, func(err error) {
		warnings = append(warnings, err)
		s.logger.Warn("bib: unresolved", slog.String("error", err.Error()))
	})
	for e := range r.Resolve(keys) {
		entries = append(entries, e)
	}
	return entries, warnings, nil
}

// Page renders the page called name: the index page for "" or
// site.IndexPage, otherwise the document with that citekey or output name.
func (s *Service) Page(ctx context.Context, name string) ([]byte, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	report := func(err error) {
		s.logger.Warn("serve: unknown citekeys", slog.String("error", err.Error()))
	}
	b := site.NewBuilder(idx, s.renderer, false, report)
	if name == "" || name == site.IndexPage {
		return b.Index()
	}
	doc, ok := idx.ByCitekey(name)
	if !ok {
		doc, ok = idx.ByOutputName(name)
	}
	if !ok {
		return nil, fmt.Errorf("%w: page %q", apperr.ErrNotFound, name)
	}
	return b.Document(doc)
}

// Generate writes the static site into outDir.
func (s *Service) Generate(ctx context.Context, outDir string, clean bool) (*site.Stats, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return site.Generate(ctx, idx, site.Options{
		OutputDir: outDir,
		Clean:     clean,
		Renderer:  s.renderer,
		Logger:    s.logger,
	})
}

// WriteTags regenerates the tags file and returns the number of tags.
func (s *Service) WriteTags(ctx context.Context) (int, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return 0, err
	}
	collected := tags.Collect(idx, func(err error) {
		s.logger.Warn("ctags: read failed", slog.String("error", err.Error()))
	})
	if err := tags.Write(ctx, s.root, collected); err != nil {
		return 0, err
	}
	return len(collected), nil
}

// Search synchronises the catalog with a fresh survey and queries it.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.catalog == nil {
		return nil, errors.New("noteservice: search catalog not configured")
	}
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := index.Sync(ctx, s.catalog, idx, s.logger); err != nil {
		return nil, err
	}
	hits, err := s.catalog.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(hits), nil
}

func (s *Service) detail(doc *models.Document) *DocumentDetail {
	kws, _ := doc.Keywords()
	d := &DocumentDetail{
		Path:     doc.RelPath,
		Title:    doc.Title,
		Kind:     string(doc.Kind),
		Citekeys: nonNilSlice(doc.Citekeys),
		Keywords: nonNilSlice(kws),
		Metadata: doc.Metadata,
		Bibtex:   doc.RawBibtex,
		CitedBy:  []string{},
		Output:   doc.OutputName,
	}
	if s.catalog != nil {
		for _, key := range doc.Citekeys {
			paths, err := s.catalog.CitedBy(key)
			if err != nil {
				s.logger.Warn("catalog: cited by failed", slog.String("key", key), slog.String("error", err.Error()))
				continue
			}
			d.CitedBy = append(d.CitedBy, paths...)
		}
		slices.Sort(d.CitedBy)
		d.CitedBy = slices.Compact(d.CitedBy)
	}
	return d
}

func listItem(d *models.Document) DocumentListItem {
	return DocumentListItem{
		Path:     d.RelPath,
		Title:    d.Title,
		Kind:     string(d.Kind),
		Citekeys: nonNilSlice(d.Citekeys),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
