// Package survey walks a jotter tree, parses every eligible file and builds
// the filename, citekey and keyword indices.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/parser"
	"github.com/starford/jotter/internal/root"
	"github.com/starford/jotter/internal/storage"
)

// Options controls a survey.
type Options struct {
	// LoadContent keeps each document's full text in memory.
	LoadContent bool
	// Logger receives one Warn record per recoverable problem. Optional.
	Logger *slog.Logger
}

// Result is the outcome of one survey.
type Result struct {
	Index *models.Index
	// Warnings lists every recoverable problem in discovery order.
	Warnings []error
}

// Survey indexes the tree at rootDir. Linked trees declared in its config
// are surveyed first, depth-first, so local documents win citekey clashes.
// Only failures of the top tree's root or config are returned as errors;
// a broken linked tree becomes a warning.
func Survey(ctx context.Context, rootDir string, opts Options) (*Result, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("survey: resolve root: %w", err)
	}
	s := &surveyor{
		top:     abs,
		opts:    opts,
		logger:  opts.Logger,
		res:     &Result{Index: models.NewIndex()},
		visited: map[string]struct{}{filepath.Clean(abs): {}},
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if err := s.tree(ctx, abs); err != nil {
		return nil, err
	}
	return s.res, nil
}

// surveyor holds the state of a single Survey call, including the set of
// tree roots already visited.
type surveyor struct {
	top     string
	opts    Options
	logger  *slog.Logger
	res     *Result
	visited map[string]struct{}
}

func (s *surveyor) tree(ctx context.Context, dir string) error {
	cfg, err := root.LoadConfig(dir)
	if err != nil {
		return err
	}
	for _, linked := range cfg.LinkedRoots(dir) {
		if _, seen := s.visited[linked]; seen {
			continue
		}
		s.visited[linked] = struct{}{}
		if err := s.tree(ctx, linked); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// A broken linked tree is dropped; the rest of the survey goes on.
			s.warn(fmt.Errorf("survey: linked tree %s: %w", linked, err), linked)
		}
	}

	store, err := storage.NewFS(dir, storage.WithFilter(parser.Eligible), storage.WithSkipDir(root.MarkerDir))
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrRootNotFound, err)
	}
	files, err := store.List()
	if err != nil {
		return fmt.Errorf("survey: %w", err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.file(store, f)
	}
	return nil
}

func (s *surveyor) file(store storage.Provider, f storage.File) {
	rel, err := filepath.Rel(s.top, f.AbsPath)
	if err != nil {
		rel = f.AbsPath
	}
	rc, err := store.Open(f.Path)
	if err != nil {
		s.warn(fmt.Errorf("%w: %v", apperr.ErrReadFailed, err), rel)
		return
	}
	doc, warnings, err := parser.Parse(parser.Source{RelPath: rel, AbsPath: f.AbsPath}, rc, s.opts.LoadContent)
	_ = rc.Close()
	if err != nil {
		s.warn(err, rel)
		return
	}
	for _, w := range warnings {
		s.warn(w, rel)
	}
	s.register(doc)
}

func (s *surveyor) register(doc *models.Document) {
	idx := s.res.Index
	id := idx.Add(*doc)
	for _, key := range doc.Citekeys {
		if prev, replaced := idx.RegisterCitekey(key, id); replaced {
			s.warn(fmt.Errorf("%w: %q declared by %s and %s, using %s",
				apperr.ErrDuplicateCitekey, key, idx.Doc(prev).RelPath, doc.RelPath, doc.RelPath), doc.RelPath)
		}
	}
	kws, ok := doc.Keywords()
	if !ok {
		s.warn(fmt.Errorf("%w: %s: keywords must be a list", apperr.ErrMalformedKeywordList, doc.RelPath), doc.RelPath)
		return
	}
	for _, kw := range kws {
		idx.AddKeyword(kw, id)
	}
}

func (s *surveyor) warn(err error, path string) {
	s.res.Warnings = append(s.res.Warnings, err)
	s.logger.Warn("survey: "+warningKind(err), slog.String("path", path), slog.String("error", err.Error()))
}

func warningKind(err error) string {
	for _, k := range []error{
		apperr.ErrDuplicateCitekey,
		apperr.ErrMalformedMetadata,
		apperr.ErrMalformedKeywordList,
		apperr.ErrReadFailed,
		apperr.ErrMalformedConfig,
		apperr.ErrRootNotFound,
	} {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "warning"
}
