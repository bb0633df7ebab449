package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/jotter/internal/survey"
	"github.com/starford/jotter/internal/testutil"
)

var treeFiles = map[string]string{
	"notes/alpha.md": "---\nid: noteA\ntitle: Alpha\nkeywords: [greek]\n---\n\nSee [@refX, sec:two] and @missing.\n",
	"notes/beta.md":  "---\ntitle: beta\nkind: todo\nkeywords: [greek]\n---\n\n## Two {#sec:two}\n",
	"refs.bib":       "@article{refX,\n  title = {X}\n}\n",
	"excerpt.md":     "---\nbibtex: |\n    @book{bookY,\n    }\n---\n\nQuote.\n",
}

func surveyed(t *testing.T) (string, *survey.Result) {
	t.Helper()
	dir := testutil.Tree(t, treeFiles)
	res, err := survey.Survey(context.Background(), dir, survey.Options{})
	require.NoError(t, err)
	return dir, res
}

func TestIndexMarkdown(t *testing.T) {
	_, res := surveyed(t)
	md := IndexMarkdown(res.Index)

	for _, want := range []string{
		"# Note\n\n\n- [Alpha](notes_alpha.md.html)\n",
		"# Todo\n\n\n- [beta](notes_beta.md.html)\n",
		"# Excerpt\n\n\n- [bookY](excerpt.md.html)\n",
		"# Bibtex\n\n\n- [refX](refs.bib.html)\n",
		"- [notes/alpha.md](notes_alpha.md.html)\n",
		"- greek\n    - [Alpha](notes_alpha.md.html)\n    - [beta](notes_beta.md.html)\n",
	} {
		assert.Contains(t, md, filepath.FromSlash(want))
	}
	assert.Less(t, strings.Index(md, "# Note"), strings.Index(md, "# Todo"))
	assert.Less(t, strings.Index(md, "# Files"), strings.Index(md, "# Keywords"))
}

func TestGenerate(t *testing.T) {
	dir, res := surveyed(t)
	out := filepath.Join(dir, ".jotter", "static")

	stats, err := Generate(context.Background(), res.Index, Options{OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Written)
	assert.Zero(t, stats.Failed)

	page, err := os.ReadFile(filepath.Join(out, "notes_alpha.md.html"))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, `<a href="refs.bib.html">@refX</a>`)
	assert.Contains(t, html, `<a href="refs.bib.html#sec:two">sec:two</a>`)
	assert.Contains(t, html, "@missing")
	assert.Contains(t, html, "<title>Alpha</title>")

	beta, err := os.ReadFile(filepath.Join(out, "notes_beta.md.html"))
	require.NoError(t, err)
	assert.Contains(t, string(beta), "{#sec:two}")

	index, err := os.ReadFile(filepath.Join(out, IndexPage))
	require.NoError(t, err)
	assert.Contains(t, string(index), IndexTitle)

	again, err := Generate(context.Background(), res.Index, Options{OutputDir: out})
	require.NoError(t, err)
	assert.Zero(t, again.Written)
	assert.Equal(t, 5, again.Unchanged)
}

func TestGenerate_Clean(t *testing.T) {
	dir, res := surveyed(t)
	out := filepath.Join(dir, ".jotter", "static")
	require.NoError(t, os.MkdirAll(out, 0o755))
	stale := filepath.Join(out, "stale.html")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	_, err := Generate(context.Background(), res.Index, Options{OutputDir: out, Clean: true})
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
