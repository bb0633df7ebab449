package tags

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

func TestCollectAndWrite(t *testing.T) {
	dir := testutil.Tree(t, map[string]string{
		"a.md":     "---\nid: noteA\n---\n\n# Intro {#sec:intro}\n\nText\n",
		"refs.bib": "@article{refX,\n}\n",
	})
	res, err := survey.Survey(context.Background(), dir, survey.Options{})
	require.NoError(t, err)

	tags := Collect(res.Index, nil)
	require.NoError(t, Write(context.Background(), dir, tags))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"noteA\ta.md\t/noteA",
		"refX\trefs.bib\t/refX",
		"sec:intro\ta.md\t/{#sec:intro}",
		"",
	}, "\n"), string(data))
}

func TestCollect_UnreadableDocument(t *testing.T) {
	dir := testutil.Tree(t, map[string]string{"a.md": "# H {#sec:h}\n"})
	res, err := survey.Survey(context.Background(), dir, survey.Options{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "a.md")))

	var reported []error
	tags := Collect(res.Index, func(err error) { reported = append(reported, err) })
	assert.Len(t, reported, 1)
	assert.Equal(t, []Tag{{Name: "note:a", Path: "a.md", Pattern: "/note:a"}}, tags)
}
