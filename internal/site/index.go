package site

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/jotter/internal/models"
)

// IndexTitle is the title of the generated index page.
const IndexTitle = "Jotter Index"

var (
	titleCase   = cases.Title(language.Und)
	linkEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`)
)

// IndexMarkdown lists the documents of idx as markdown: one section per
// note kind, then excerpts and bibliographies by citekey, files by path and
// documents by keyword.
func IndexMarkdown(idx *models.Index) string {
	docs := idx.Documents()
	var b strings.Builder

	kinds := map[models.Kind]struct{}{}
	for _, d := range docs {
		kinds[d.Kind] = struct{}{}
	}
	for _, kind := range sortedKinds(kinds) {
		if kind == models.KindExcerpt || kind == models.KindBibtex {
			continue
		}
		var items []string
		for _, d := range docs {
			if d.Kind == kind {
				items = append(items, item(d.Title, d.OutputName))
			}
		}
		section(&b, titleCase.String(string(kind)), items)
	}

	var excerpts, bibtex []string
	for _, key := range idx.Citekeys() {
		d, _ := idx.ByCitekey(key)
		switch d.Kind {
		case models.KindExcerpt:
			excerpts = append(excerpts, item(key, d.OutputName))
		case models.KindBibtex:
			bibtex = append(bibtex, item(key, d.OutputName))
		}
	}
	section(&b, "Excerpt", excerpts)
	section(&b, "Bibtex", bibtex)

	files := make([]string, 0, len(docs))
	for _, d := range docs {
		files = append(files, item(d.RelPath, d.OutputName))
	}
	section(&b, "Files", files)

	keywords := idx.Keywords()
	slices.SortStableFunc(keywords, foldCompare)
	b.WriteString("\n\n\n# Keywords\n\n\n")
	for _, kw := range keywords {
		fmt.Fprintf(&b, "- %s\n", kw)
		tagged := idx.ByKeyword(kw)
		slices.SortStableFunc(tagged, func(x, y *models.Document) int { return foldCompare(x.Title, y.Title) })
		for _, d := range tagged {
			b.WriteString("    " + item(d.Title, d.OutputName))
		}
	}
	return b.String()
}

func section(b *strings.Builder, heading string, items []string) {
	slices.SortStableFunc(items, foldCompare)
	fmt.Fprintf(b, "\n\n\n# %s\n\n\n", heading)
	for _, it := range items {
		b.WriteString(it)
	}
}

func item(text, target string) string {
	return fmt.Sprintf("- [%s](%s)\n", linkEscaper.Replace(text), target)
}

func sortedKinds(set map[models.Kind]struct{}) []models.Kind {
	out := make([]models.Kind, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
