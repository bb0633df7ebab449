package bib

import (
	"fmt"
	"iter"
	"sort"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// ReportFunc receives recoverable resolution errors.
type ReportFunc func(err error)

// Resolver emits literal bibliography entries for requested citekeys.
type Resolver struct {
	idx        *models.Index
	followDeps bool
	report     ReportFunc
}

// NewResolver creates a Resolver over idx. report may be nil.
func NewResolver(idx *models.Index, followDeps bool, report ReportFunc) *Resolver {
	if report == nil {
		report = func(error) {}
	}
	return &Resolver{idx: idx, followDeps: followDeps, report: report}
}

// Resolve returns a lazy sequence of entry texts for keys, in request
// order. With dependency following enabled every crossref/xref target is
// emitted before the entry that names it. No entry is emitted twice.
func (r *Resolver) Resolve(keys []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		w := &walk{
			r:       r,
			yield:   yield,
			visited: make(map[string]struct{}),
			pending: make(map[string]struct{}),
		}
		for _, key := range keys {
			if !w.resolve(key) {
				return
			}
		}
	}
}

// walk carries the visited set of a single Resolve call.
type walk struct {
	r       *Resolver
	yield   func(string) bool
	visited map[string]struct{}
	pending map[string]struct{}
}

// resolve returns false once the consumer stops iterating.
func (w *walk) resolve(key string) bool {
	if _, done := w.visited[key]; done {
		return true
	}
	if _, busy := w.pending[key]; busy {
		return true
	}
	entry, ok := w.lookup(key)
	if !ok {
		return true
	}
	if w.r.followDeps {
		w.pending[key] = struct{}{}
		for _, dep := range Dependencies(entry.Text) {
			if !w.resolve(dep) {
				return false
			}
		}
		delete(w.pending, key)
	}
	if _, emitted, ok := Header(entry.Text); ok {
		w.visited[emitted] = struct{}{}
	}
	w.visited[key] = struct{}{}
	return w.yield(entry.Text)
}

func (w *walk) lookup(key string) (Entry, bool) {
	doc, ok := w.r.idx.ByCitekey(key)
	if !ok {
		w.r.report(fmt.Errorf("%w: %s: no document declares it", apperr.ErrUnresolvedCitekey, key))
		return Entry{}, false
	}
	if !doc.HasBibtex() {
		w.r.report(fmt.Errorf("%w: %s: %s has no bibliography", apperr.ErrUnresolvedCitekey, key, doc.RelPath))
		return Entry{}, false
	}
	for _, e := range Split(doc.RawBibtex) {
		if e.Key == key {
			return e, true
		}
	}
	w.r.report(fmt.Errorf("%w: %s: no entry in %s", apperr.ErrUnresolvedCitekey, key, doc.RelPath))
	return Entry{}, false
}

// All yields every entry of every bibliography-bearing document, ordered by
// relative path, each key once.
func All(idx *models.Index) iter.Seq[string] {
	return func(yield func(string) bool) {
		docs := idx.Documents()
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
		seen := make(map[string]struct{})
		for _, doc := range docs {
			if !doc.HasBibtex() {
				continue
			}
			for _, e := range Split(doc.RawBibtex) {
				if _, dup := seen[e.Key]; dup {
					continue
				}
				seen[e.Key] = struct{}{}
				if !yield(e.Text) {
					return
				}
			}
		}
	}
}
