// Package models defines the domain types for jotter.
package models

import (
	"path/filepath"
	"strings"
)

// Kind classifies a Document.
type Kind string

const (
	KindNote    Kind = "note"
	KindExcerpt Kind = "excerpt"
	KindBibtex  Kind = "bibtex"
)

// Document is one parsed markdown or bibliography file.
// Documents are immutable once added to an Index.
type Document struct {
	RelPath    string         `json:"path"`
	ShortName  string         `json:"short_name"`
	AbsPath    string         `json:"-"`
	OutputName string         `json:"output_name"`
	Kind       Kind           `json:"kind"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RawBibtex  string         `json:"bibtex,omitempty"`
	Citekeys   []string       `json:"citekeys"`

	// Content is only populated when the survey was asked to load it.
	Content       string `json:"-"`
	ContentLoaded bool   `json:"-"`
}

// HasBibtex reports whether the document carries a bibliography block.
func (d *Document) HasBibtex() bool {
	return d.RawBibtex != ""
}

// Keywords returns the metadata "keywords" values. ok is false when the
// field is present but is not a list of scalars.
func (d *Document) Keywords() (kws []string, ok bool) {
	raw, present := d.Metadata["keywords"]
	if !present || raw == nil {
		return nil, true
	}
	items, isList := raw.([]any)
	if !isList {
		return nil, false
	}
	for _, item := range items {
		switch v := item.(type) {
		case string:
			kws = append(kws, v)
		case int, int64, float64, bool:
			kws = append(kws, toString(v))
		default:
			return nil, false
		}
	}
	return kws, true
}

// ShortName strips directories and the extension from rel.
func ShortName(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputName flattens rel into a single filesystem-safe HTML file name.
// Parent references become "up" so linked trees outside the root stay unique.
func OutputName(rel string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	for i, p := range parts {
		if p == ".." {
			parts[i] = "up"
		}
	}
	return strings.Join(parts, "_") + ".html"
}
