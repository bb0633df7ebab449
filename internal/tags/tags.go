// Package tags writes a ctags compatible index of citekeys and heading
// labels so editors can jump to the document that declares them.
package tags

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/parser"
	"github.com/starford/jotter/internal/storage"
	"github.com/starford/jotter/internal/survey"
)

// FileName is the tags file written at the tree root.
const FileName = "tags"

// Tag is one line of a tags file.
type Tag struct {
	Name    string
	Path    string
	Pattern string
}

// Collect returns the tags for every citekey of idx, plus one per heading
// label declared in a markdown document. Documents that cannot be read are
// passed to report and contribute only their citekeys.
func Collect(idx *models.Index, report func(error)) []Tag {
	var out []Tag
	for _, key := range idx.Citekeys() {
		doc, _ := idx.ByCitekey(key)
		out = append(out, Tag{Name: key, Path: doc.RelPath, Pattern: "/" + key})
	}
	for _, doc := range idx.Documents() {
		if !strings.EqualFold(filepath.Ext(doc.RelPath), parser.ExtMarkdown) {
			continue
		}
		content, err := survey.Content(doc)
		if err != nil {
			if report != nil {
				report(err)
			}
			continue
		}
		for _, page := range parser.Pages(content) {
			for _, id := range parser.IDs(page).Sorted() {
				if slices.Contains(doc.Citekeys, id) {
					continue
				}
				out = append(out, Tag{Name: id, Path: doc.RelPath, Pattern: "/{#" + id + "}"})
			}
		}
	}
	slices.SortFunc(out, func(a, b Tag) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.Path, b.Path),
			strings.Compare(a.Pattern, b.Pattern),
		)
	})
	return slices.Compact(out)
}

// Format writes tags as tab separated lines.
func Format(w io.Writer, tags []Tag) error {
	for _, t := range tags {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Path, t.Pattern); err != nil {
			return err
		}
	}
	return nil
}

// Write replaces the tags file of rootDir.
func Write(ctx context.Context, rootDir string, tags []Tag) error {
	release, err := storage.Lock(ctx, filepath.Join(rootDir, ".jotter", FileName+".lock"))
	if err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	defer release()

	store, err := storage.NewFS(rootDir)
	if err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	var buf bytes.Buffer
	if err := Format(&buf, tags); err != nil {
		return err
	}
	if err := store.Write(FileName, buf.Bytes()); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	return nil
}
