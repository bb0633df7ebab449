// Package site builds the static HTML version of a jotter tree.
package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/jotter/internal/citeproc"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/render"
	"github.com/starford/jotter/internal/storage"
	"github.com/starford/jotter/internal/survey"
)

// IndexPage is the output name of the index page.
const IndexPage = "index.html"

// Builder renders the pages of one surveyed index.
type Builder struct {
	idx      *models.Index
	renderer *render.Renderer
	linker   *citeproc.Linker
}

// NewBuilder returns a Builder for idx. Unknown citation keys are passed
// to report, once per document.
func NewBuilder(idx *models.Index, r *render.Renderer, internalLinks bool, report citeproc.ReportFunc) *Builder {
	return &Builder{
		idx:      idx,
		renderer: r,
		linker:   citeproc.NewLinker(idx, internalLinks, report),
	}
}

// Index renders the index page. Its links are never rewritten.
func (b *Builder) Index() ([]byte, error) {
	body, err := b.renderer.Markdown(IndexMarkdown(b.idx))
	if err != nil {
		return nil, err
	}
	return b.renderer.Page(IndexTitle, body)
}

// Document renders doc and links its citations.
func (b *Builder) Document(doc *models.Document) ([]byte, error) {
	content, err := survey.Content(doc)
	if err != nil {
		return nil, err
	}
	page, err := b.renderer.Document(doc, content)
	if err != nil {
		return nil, err
	}
	res, err := b.linker.Link(doc, bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.RelPath, err)
	}
	return []byte(res.HTML), nil
}

// Options controls Generate.
type Options struct {
	// OutputDir receives the pages. It is created when missing.
	OutputDir string
	// Clean empties OutputDir before writing.
	Clean bool
	Renderer *render.Renderer
	Logger   *slog.Logger
}

// Stats summarises a Generate run.
type Stats struct {
	Written   int
	Unchanged int
	Failed    int
}

// Generate writes the index page and one page per document of idx into
// opts.OutputDir. Pages whose bytes did not change are left untouched. A
// document that cannot be rendered is logged and skipped.
func Generate(ctx context.Context, idx *models.Index, opts Options) (*Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New()
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("site: resolve output: %w", err)
	}

	release, err := storage.Lock(ctx, out+".lock")
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	defer release()

	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("site: mkdir: %w", err)
	}
	store, err := storage.NewFS(filepath.Dir(out))
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	dir := filepath.Base(out)
	if opts.Clean {
		if err := store.Clean(dir); err != nil {
			return nil, fmt.Errorf("site: %w", err)
		}
	}

	report := func(err error) {
		logger.Warn("site: unknown citekeys", slog.String("error", err.Error()))
	}
	b := NewBuilder(idx, renderer, false, report)
	stats := &Stats{}

	page, err := b.Index()
	if err != nil {
		return nil, fmt.Errorf("site: index: %w", err)
	}
	if err := stats.write(store, filepath.Join(dir, IndexPage), page); err != nil {
		return nil, err
	}

	for _, doc := range idx.Documents() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		page, err := b.Document(doc)
		if err != nil {
			stats.Failed++
			logger.Warn("site: render failed", slog.String("path", doc.RelPath), slog.String("error", err.Error()))
			continue
		}
		if err := stats.write(store, filepath.Join(dir, doc.OutputName), page); err != nil {
			return stats, err
		}
		logger.Debug("site: page", slog.String("path", doc.RelPath), slog.String("output", doc.OutputName))
	}
	return stats, nil
}

func (s *Stats) write(store *storage.FS, path string, page []byte) error {
	changed, err := store.WriteIfChanged(path, page)
	if err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if changed {
		s.Written++
	} else {
		s.Unchanged++
	}
	return nil
}
