package noteservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/jotter/internal/citeproc"
	"github.com/starford/jotter/internal/parser"
	"github.com/starford/jotter/internal/survey"
)

// Finding is an outbound citation that resolves to nothing.
type Finding struct {
	Path string `json:"path"`
	Page int    `json:"page"`
	Key  string `json:"key"`
}

// Check scans every markdown document and reports citations that match
// neither a citekey nor a label of the same document. Pages are numbered
// from 1; a document without labelled pages is checked as a single page.
func (s *Service) Check(ctx context.Context) ([]Finding, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	findings := []Finding{}
	for _, doc := range idx.Documents() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.EqualFold(filepath.Ext(doc.RelPath), parser.ExtMarkdown) {
			continue
		}
		content, err := survey.Content(doc)
		if err != nil {
			s.logger.Warn("check: read failed", slog.String("path", doc.RelPath), slog.String("error", err.Error()))
			continue
		}
		labels := parser.IDs(content)
		pages := parser.Pages(content)
		if len(pages) == 0 {
			pages = []string{content}
		}
		for i, page := range pages {
			for _, key := range parser.Cites(page).Sorted() {
				switch {
				case key == citeproc.KeyThis, key == citeproc.KeyUnknown:
					continue
				case labels.Has(key):
					continue
				}
				if _, ok := idx.ByCitekey(key); ok {
					continue
				}
				findings = append(findings, Finding{Path: doc.RelPath, Page: i + 1, Key: key})
			}
		}
	}
	return findings, nil
}
