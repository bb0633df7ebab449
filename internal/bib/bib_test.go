package bib

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

const library = `@article{refX,
  title = {X},
  crossref = {coll}
}

@collection{coll,
  title = {Collected}
}
  @book{refY,
  xref = "refX"
}

@string{jan = "January"}
`

func testIndex(t *testing.T, docs ...models.Document) *models.Index {
	t.Helper()
	idx := models.NewIndex()
	for _, d := range docs {
		id := idx.Add(d)
		for _, k := range d.Citekeys {
			idx.RegisterCitekey(k, id)
		}
	}
	return idx
}

func libraryIndex(t *testing.T) *models.Index {
	return testIndex(t, models.Document{
		RelPath:   "lib.bib",
		Kind:      models.KindBibtex,
		RawBibtex: library,
		Citekeys:  Keys(library),
	})
}

func keysOf(t *testing.T, texts []string) []string {
	t.Helper()
	var out []string
	for _, txt := range texts {
		_, k, ok := Header(txt)
		require.True(t, ok, "entry without header: %q", txt)
		out = append(out, k)
	}
	return out
}

func TestSplit(t *testing.T) {
	entries := Split(library)
	require.Len(t, entries, 3)
	assert.Equal(t, "refX", entries[0].Key)
	assert.Equal(t, "collection", entries[1].Type)
	assert.Equal(t, "@book{refY,\n  xref = \"refX\"\n}", entries[2].Text)
}

func TestDependencies(t *testing.T) {
	assert.Equal(t, []string{"coll"}, Dependencies("@article{a,\n  CrossRef = { coll },\n}"))
	assert.Equal(t, []string{"b", "c"}, Dependencies("@article{a,\n  xref = \"b, c\"\n}"))
	assert.Empty(t, Dependencies("@article{a,\n  title = {No refs}\n}"))
}

func TestResolve_NoDeps(t *testing.T) {
	r := NewResolver(libraryIndex(t), false, nil)
	got := slices.Collect(r.Resolve([]string{"refX"}))
	require.Len(t, got, 1)
	assert.Equal(t, "@article{refX,\n  title = {X},\n  crossref = {coll}\n}", got[0])

	again := slices.Collect(r.Resolve([]string{"refX"}))
	assert.Equal(t, got, again)
}

func TestResolve_DependenciesFirst(t *testing.T) {
	r := NewResolver(libraryIndex(t), true, nil)
	got := slices.Collect(r.Resolve([]string{"refY", "refX", "coll"}))
	assert.Equal(t, []string{"coll", "refX", "refY"}, keysOf(t, got))
}

func TestResolve_RoundTrip(t *testing.T) {
	r := NewResolver(libraryIndex(t), true, nil)
	for text := range r.Resolve([]string{"refY"}) {
		entries := Split(text)
		require.Len(t, entries, 1)
	}
	got := slices.Collect(r.Resolve([]string{"refY"}))
	assert.Equal(t, "refY", Split(got[len(got)-1])[0].Key)
}

func TestResolve_CycleTerminates(t *testing.T) {
	raw := "@article{A,\n  crossref = {B}\n}\n@article{B,\n  crossref = {A}\n}\n"
	idx := testIndex(t, models.Document{RelPath: "c.bib", RawBibtex: raw, Citekeys: Keys(raw)})
	got := slices.Collect(NewResolver(idx, true, nil).Resolve([]string{"A", "B", "A"}))
	assert.Equal(t, []string{"B", "A"}, keysOf(t, got))
}

func TestResolve_Unresolved(t *testing.T) {
	idx := testIndex(t,
		models.Document{RelPath: "lib.bib", RawBibtex: library, Citekeys: Keys(library)},
		models.Document{RelPath: "note.md", Citekeys: []string{"plain"}},
	)
	var errs []error
	r := NewResolver(idx, false, func(err error) { errs = append(errs, err) })
	got := slices.Collect(r.Resolve([]string{"missing", "plain", "refX"}))
	assert.Equal(t, []string{"refX"}, keysOf(t, got))
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperr.ErrUnresolvedCitekey)
	}
}

func TestResolve_StopsEarly(t *testing.T) {
	r := NewResolver(libraryIndex(t), true, nil)
	n := 0
	for range r.Resolve([]string{"refY"}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestAll_OrderedByPath(t *testing.T) {
	idx := testIndex(t,
		models.Document{RelPath: "z.bib", RawBibtex: "@misc{z1,\n}\n", Citekeys: []string{"z1"}},
		models.Document{RelPath: "a.md", RawBibtex: "@misc{a1,\n}\n@misc{z1,\n}\n", Citekeys: []string{"a1", "z1"}},
		models.Document{RelPath: "n.md", Citekeys: []string{"note:n"}},
	)
	assert.Equal(t, []string{"a1", "z1"}, keysOf(t, slices.Collect(All(idx))))
}
