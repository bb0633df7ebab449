// Package citeproc links the citation groups of rendered HTML to the
// documents of an index.
//
// A citation group is any element whose class list contains "citation" and
// whose data-cites attribute lists the cited keys in display order. The
// element's text holds the keys interleaved with the literal prefix and
// trailing text of each one.
package citeproc

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// Sentinel keys with a fixed meaning inside a citation group.
const (
	KeyThis    = "this"
	KeyUnknown = "unknown"
)

var (
	// LabelRe matches in-document anchors such as "sec:intro".
	LabelRe = regexp.MustCompile(`(sec|fig|tbl|lst|eq):[\p{L}\p{N}_:-]+`)

	leadingLabelRe = regexp.MustCompile(`^` + LabelRe.String())
	markerRe       = regexp.MustCompile(`@(<a href=.*?>)`)
)

// ReportFunc receives one ErrUnknownCitationKey per linked document.
type ReportFunc func(error)

// Linker rewrites citation groups into navigation links.
type Linker struct {
	idx           *models.Index
	internalLinks bool
	report        ReportFunc
}

// NewLinker returns a Linker over idx. When internalLinks is false, links
// already present in the HTML are opened in a new browsing context.
func NewLinker(idx *models.Index, internalLinks bool, report ReportFunc) *Linker {
	if report == nil {
		report = func(error) {}
	}
	return &Linker{idx: idx, internalLinks: internalLinks, report: report}
}

// Result is the linked HTML of one document.
type Result struct {
	HTML string
	// Unknown lists the distinct unresolved keys, sorted.
	Unknown []string
}

// Link rewrites the HTML read from r that was rendered for doc.
func (l *Linker) Link(doc *models.Document, r io.Reader) (*Result, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("citeproc: parse: %w", err)
	}

	var groups, labelled, anchors []*html.Node
	for n := range root.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		if hasClass(n, "citation") {
			if _, ok := attr(n, "data-cites"); ok {
				groups = append(groups, n)
			}
		}
		if id, ok := attr(n, "id"); ok && LabelRe.MatchString(id) {
			labelled = append(labelled, n)
		}
		if n.DataAtom == atom.A {
			if _, ok := attr(n, "href"); ok {
				anchors = append(anchors, n)
			}
		}
	}

	if !l.internalLinks {
		for _, a := range anchors {
			setAttr(a, "target", "_blank")
		}
	}

	unknown := map[string]struct{}{}
	for _, g := range groups {
		if err := l.replaceGroup(doc, g, unknown); err != nil {
			return nil, err
		}
	}

	for _, n := range labelled {
		id, _ := attr(n, "id")
		n.AppendChild(&html.Node{Type: html.TextNode, Data: " {#" + id + "}"})
	}

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return nil, fmt.Errorf("citeproc: render: %w", err)
	}

	res := &Result{HTML: b.String()}
	for k := range unknown {
		res.Unknown = append(res.Unknown, k)
	}
	slices.Sort(res.Unknown)
	if len(res.Unknown) > 0 {
		l.report(fmt.Errorf("%w in %s: %s", apperr.ErrUnknownCitationKey, docName(doc), strings.Join(res.Unknown, ", ")))
	}
	return res, nil
}

// group returns the linked markup for one citation group given its keys in
// display order and its plain text.
func (l *Linker) group(doc *models.Document, keys []string, text string, unknown map[string]struct{}) string {
	var b strings.Builder
	prev := ""
	for _, key := range keys {
		prefix, rest := cutKey(text, key)
		b.WriteString(l.link(doc, prev, html.EscapeString(prefix), unknown))
		prev, text = key, rest
	}
	b.WriteString(l.link(doc, prev, html.EscapeString(text), unknown))
	return markerRe.ReplaceAllString(b.String(), "${1}@")
}

// cutKey splits text around the citation of key. The "@key" marker is
// preferred so a word merely containing the key is not split; the marker
// stays in the prefix. A key absent from text yields an empty prefix.
func cutKey(text, key string) (prefix, rest string) {
	if before, after, ok := strings.Cut(text, "@"+key); ok {
		return before + "@", after
	}
	if before, after, ok := strings.Cut(text, key); ok {
		return before, after
	}
	return "", text
}

// link renders key followed by its trailing text. Dashes are typeset in
// text only; hrefs and key text are left as written.
func (l *Linker) link(doc *models.Document, key, trailing string, unknown map[string]struct{}) string {
	if key == "" {
		return dashes(trailing)
	}
	escaped := html.EscapeString(key)
	switch {
	case leadingLabelRe.MatchString(key):
		return anchor("#"+key, escaped) + dashes(trailing)
	case key == KeyThis:
		return linkLabels(trailing, "")
	case key == KeyUnknown:
		return escaped + dashes(trailing)
	}
	target, ok := l.idx.ByCitekey(key)
	switch {
	case ok && doc != nil && l.idx.Same(target, doc):
		return linkLabels(trailing, "")
	case ok:
		return anchor(target.OutputName, escaped) + linkLabels(trailing, target.OutputName)
	}
	unknown[key] = struct{}{}
	return escaped + dashes(trailing)
}

func (l *Linker) replaceGroup(doc *models.Document, n *html.Node, unknown map[string]struct{}) error {
	cites, _ := attr(n, "data-cites")
	markup := l.group(doc, strings.Fields(cites), textContent(n), unknown)

	parent := n.Parent
	if parent.Type != html.ElementNode {
		parent = &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return fmt.Errorf("citeproc: parse group: %w", err)
	}
	for _, c := range nodes {
		n.Parent.InsertBefore(c, n)
	}
	n.Parent.RemoveChild(n)
	return nil
}

func linkLabels(text, target string) string {
	var b strings.Builder
	last := 0
	for _, m := range LabelRe.FindAllStringIndex(text, -1) {
		label := text[m[0]:m[1]]
		b.WriteString(dashes(text[last:m[0]]))
		b.WriteString(anchor(target+"#"+label, label))
		last = m[1]
	}
	b.WriteString(dashes(text[last:]))
	return b.String()
}

func dashes(text string) string {
	return strings.ReplaceAll(text, "--", "–")
}

func anchor(href, text string) string {
	return `<a href="` + html.EscapeString(href) + `">` + text + `</a>`
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := range n.Descendants() {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	return ok && slices.Contains(strings.Fields(v), class)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func docName(doc *models.Document) string {
	if doc == nil {
		return "document"
	}
	return doc.RelPath
}
