package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/jotter/internal/models"
)

func TestMarkCitations(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			name: "bare key",
			in:   "see @noteA.\n",
			want: `see <span class="citation" data-cites="noteA">@noteA</span>.` + "\n",
		},
		{
			name: "bracketed group",
			in:   "x [see @a; @b, p. 3] y",
			want: `x <span class="citation" data-cites="a b">&#91;see @a; @b, p. 3&#93;</span> y`,
		},
		{
			name: "label key",
			in:   "[@sec:intro]",
			want: `<span class="citation" data-cites="sec:intro">&#91;@sec:intro&#93;</span>`,
		},
		{
			name: "link text untouched",
			in:   "[mail @a](https://example.org)",
			want: "[mail @a](https://example.org)",
		},
		{
			name: "email untouched",
			in:   "write to me@example.org",
			want: "write to me@example.org",
		},
		{
			name: "code span untouched",
			in:   "use `@decorator` and @b",
			want: "use `@decorator` and " + `<span class="citation" data-cites="b">@b</span>`,
		},
		{
			name: "brackets without keys",
			in:   "[a] and [b]",
			want: "[a] and [b]",
		},
		{
			name: "non-ASCII bare key",
			in:   "see @Müller2020 here",
			want: `see <span class="citation" data-cites="Müller2020">@Müller2020</span> here`,
		},
		{
			name: "non-ASCII key in group",
			in:   "[@Müller2020, p. 3]",
			want: `<span class="citation" data-cites="Müller2020">&#91;@Müller2020, p. 3&#93;</span>`,
		},
		{
			name: "non-ASCII email untouched",
			in:   "écrire à zoé@example.org",
			want: "écrire à zoé@example.org",
		},
		{
			name: "escapes group text",
			in:   "[a < b @k]",
			want: `<span class="citation" data-cites="k">&#91;a &lt; b @k&#93;</span>`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MarkCitations(tc.in))
		})
	}
}

func TestMarkCitations_FencedCode(t *testing.T) {
	in := "```\n@inside\n```\n@outside\n"
	out := MarkCitations(in)
	assert.Contains(t, out, "```\n@inside\n```\n")
	assert.Contains(t, out, `data-cites="outside"`)
	assert.NotContains(t, out, `data-cites="inside"`)
}

func TestMarkdown_HeadingAttributesAndCitations(t *testing.T) {
	r := New()
	out, err := r.Markdown("## Intro {#sec:intro}\n\nSee [@noteB] and @refX.\n")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `<h2 id="sec:intro">Intro</h2>`)
	assert.Contains(t, html, `<span class="citation" data-cites="noteB">`)
	assert.Contains(t, html, `<span class="citation" data-cites="refX">@refX</span>`)
}

func TestDocument_DropsFrontMatter(t *testing.T) {
	r := New(WithCSS("style.css"))
	doc := &models.Document{RelPath: "a.md", Title: "Alpha & Omega"}
	out, err := r.Document(doc, "---\nid: noteA\n---\n\nBody text\n")
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, "<title>Alpha &amp; Omega</title>")
	assert.Contains(t, page, `<link rel="stylesheet" href="style.css">`)
	assert.Contains(t, page, "<p>Body text</p>")
	assert.NotContains(t, page, "noteA")
	assert.NotContains(t, page, "EventSource")
}

func TestDocument_Bibliography(t *testing.T) {
	r := New(WithLiveReload("/events"))
	doc := &models.Document{RelPath: "refs.bib", Title: "refX"}
	out, err := r.Document(doc, "@article{refX,\n  title = {A <b>}\n}\n")
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, `<pre><code class="language-bibtex">@article{refX,`)
	assert.Contains(t, page, "A &lt;b&gt;")
	assert.True(t, strings.Contains(page, "EventSource"))
}
