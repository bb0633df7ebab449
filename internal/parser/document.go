// Package parser turns markdown and bibliography files into Documents and
// scans their text for pages, declared ids and outbound citations.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/bib"
	"github.com/starford/jotter/internal/models"
)

// Recognised file extensions.
const (
	ExtMarkdown = ".md"
	ExtBibtex   = ".bib"
)

// Eligible reports whether name has a recognised extension.
func Eligible(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtMarkdown, ExtBibtex:
		return true
	}
	return false
}

// Source identifies the file being parsed.
type Source struct {
	RelPath string
	AbsPath string
}

// Parse reads one file from r and builds its Document. Recoverable problems
// are returned as warnings; err is only set when r cannot be read.
func Parse(src Source, r io.Reader, loadContent bool) (doc *models.Document, warnings []error, err error) {
	doc = &models.Document{
		RelPath:    src.RelPath,
		AbsPath:    src.AbsPath,
		ShortName:  models.ShortName(src.RelPath),
		OutputName: models.OutputName(src.RelPath),
		Metadata:   map[string]any{},
	}

	if strings.EqualFold(filepath.Ext(src.RelPath), ExtBibtex) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", apperr.ErrReadFailed, src.RelPath, err)
		}
		doc.RawBibtex = string(data)
		if loadContent {
			doc.Content, doc.ContentLoaded = doc.RawBibtex, true
		}
		warnings = enrich(doc, true)
		return doc, warnings, nil
	}

	ex, err := ExtractFrontMatter(r, loadContent)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src.RelPath, err)
	}
	if loadContent {
		doc.Content, doc.ContentLoaded = ex.Content, true
	}
	meta, err := DecodeMetadata(ex.Blocks)
	if err != nil {
		warnings = append(warnings, fmt.Errorf("%s: %w", src.RelPath, err))
	}
	doc.Metadata = meta
	if raw, ok := meta["bibtex"]; ok {
		if s, isString := raw.(string); isString {
			doc.RawBibtex = s
		} else {
			warnings = append(warnings, fmt.Errorf("%w: %s: bibtex field is not text", apperr.ErrMalformedMetadata, src.RelPath))
		}
	}
	warnings = append(warnings, enrich(doc, false)...)
	return doc, warnings, nil
}

// enrich derives kind, citekeys and title from metadata and bibliography.
//
// Citekeys are the bibliography entry keys in text order followed by the
// explicit ids. The title falls back to the sole non-collection entry key,
// then to the short name.
func enrich(doc *models.Document, bibFile bool) []error {
	var warnings []error
	ids, ok := stringList(doc.Metadata["id"])
	if !ok {
		warnings = append(warnings, fmt.Errorf("%w: %s: id must be a value or a list of values", apperr.ErrMalformedMetadata, doc.RelPath))
	}
	kindOverride, _ := doc.Metadata["kind"].(string)
	kindOverride = strings.TrimSpace(kindOverride)

	var primary []string
	switch {
	case bibFile:
		doc.Kind = models.KindBibtex
	case doc.HasBibtex():
		doc.Kind = models.KindExcerpt
		if kindOverride == string(models.KindBibtex) {
			doc.Kind = models.KindBibtex
		}
	case kindOverride != "":
		doc.Kind = models.Kind(kindOverride)
	default:
		doc.Kind = models.KindNote
	}

	var keys []string
	if doc.HasBibtex() {
		for _, e := range bib.Split(doc.RawBibtex) {
			keys = append(keys, e.Key)
			if !bib.IsCollection(e.Type) {
				primary = append(primary, e.Key)
			}
		}
		keys = append(keys, ids...)
	} else {
		keys = ids
	}
	doc.Citekeys = dedupe(keys)
	if len(doc.Citekeys) == 0 {
		doc.Citekeys = []string{fmt.Sprintf("%s:%s", doc.Kind, doc.ShortName)}
	}

	switch title := scalarString(doc.Metadata["title"]); {
	case title != "":
		doc.Title = title
	case len(primary) == 1:
		doc.Title = primary[0]
	default:
		doc.Title = doc.ShortName
	}
	return warnings
}

// stringList normalises a scalar or a list of scalars. A nil value is an
// empty, valid list.
func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s := scalarString(item)
			if s == "" {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		s := scalarString(t)
		if s == "" {
			return nil, false
		}
		return []string{s}, true
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
