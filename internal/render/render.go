// Package render converts jotter documents to HTML pages.
//
// Markdown is rendered with goldmark. Citations are emitted as citation
// group elements (see MarkCitations) for the citeproc linker to resolve.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/jotter/internal/models"
	jparser "github.com/starford/jotter/internal/parser"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{- if .CSS}}
<link rel="stylesheet" href="{{.CSS}}">
{{- end}}
</head>
<body>
<header id="title-block-header">
<h1 class="title">{{.Title}}</h1>
</header>
{{.Body}}
{{- if .Events}}
<script>new EventSource({{.Events}}).addEventListener("reload", function () { location.reload(); });</script>
{{- end}}
</body>
</html>
`

// Renderer turns markdown into standalone HTML pages. It is safe for
// concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	page   *template.Template
	css    string
	events string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCSS links every page to the stylesheet at href.
func WithCSS(href string) Option {
	return func(r *Renderer) { r.css = href }
}

// WithLiveReload makes pages reload when the event stream at path sends a
// "reload" event.
func WithLiveReload(path string) Option {
	return func(r *Renderer) { r.events = path }
}

// New builds a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote, extension.DefinitionList),
			goldmark.WithParserOptions(parser.WithAutoHeadingID(), parser.WithAttribute()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		page: template.Must(template.New("page").Parse(pageTemplate)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Markdown renders an HTML fragment from markdown source, citations marked.
func (r *Renderer) Markdown(src string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(MarkCitations(src)), &buf); err != nil {
		return nil, fmt.Errorf("render: markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page wraps an HTML fragment in a standalone page.
func (r *Renderer) Page(title string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := r.page.Execute(&buf, struct {
		Title  string
		CSS    string
		Events string
		Body   template.HTML
	}{title, r.css, r.events, template.HTML(body)})
	if err != nil {
		return nil, fmt.Errorf("render: page: %w", err)
	}
	return buf.Bytes(), nil
}

// Document renders doc from its full file content. Front-matter blocks
// are dropped; bibliography files are shown verbatim.
func (r *Renderer) Document(doc *models.Document, content string) ([]byte, error) {
	var body []byte
	if strings.EqualFold(filepath.Ext(doc.RelPath), jparser.ExtBibtex) {
		body = []byte(`<pre><code class="language-bibtex">` + template.HTMLEscapeString(content) + "</code></pre>\n")
	} else {
		ex, err := jparser.ExtractFrontMatter(strings.NewReader(content), true)
		if err != nil {
			return nil, fmt.Errorf("render: %s: %w", doc.RelPath, err)
		}
		if body, err = r.Markdown(ex.Body); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.RelPath, err)
		}
	}
	return r.Page(doc.Title, body)
}
