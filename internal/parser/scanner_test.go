package parser

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := map[string]LineClass{
		"":                 LineBlank,
		"   \n":            LineBlank,
		"---\n":            LineDashFence,
		"  -----  ":        LineDashFence,
		"...":              LineDotFence,
		"# Intro {#sec:a}": LineLabelHeading,
		"# Intro":          LineText,
		"--":               LineText,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Errorf("Classify(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStep_TableDefaults(t *testing.T) {
	if tr := Step(InBlock, LineLabelHeading); tr.Next != InBlock || tr.Action != Append {
		t.Errorf("heading inside block should append, got %+v", tr)
	}
	if tr := Step(Outside, LineDashFence); tr.Next != InBlock {
		t.Errorf("fence outside should open block, got %+v", tr)
	}
	if tr := Step(AfterBlock, LineDashFence); tr.Action != SplitAtFence {
		t.Errorf("fence after block should split, got %+v", tr)
	}
}

func TestPages_TwoBlocksTwoHeadings(t *testing.T) {
	text := "\n\n---\ntitle: A\n---\n\n# A {#sec:a}\ntext a\n---\ntitle: B\n---\n# B {#sec:b}\ntext b\n"
	pages := Pages(text)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2: %q", len(pages), pages)
	}
	for i, want := range []string{"sec:a", "sec:b"} {
		ids := IDs(pages[i])
		if len(ids) != 1 || !ids.Has(want) {
			t.Errorf("page %d ids = %v, want {%s}", i, ids.Sorted(), want)
		}
	}
	if strings.HasPrefix(pages[0], "\n") {
		t.Error("leading blank lines should be skipped")
	}
}

func TestPages_HeadingSplitsAfterLabelledPage(t *testing.T) {
	text := "---\ntitle: T\n---\n# One {#sec:one}\nbody\n# Two {#sec:two}\nbody\n"
	pages := Pages(text)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if !strings.HasPrefix(pages[1], "# Two") {
		t.Errorf("second page = %q", pages[1])
	}
}

func TestPages_TrailingPageWithoutIDsDropped(t *testing.T) {
	text := "---\ntitle: T\n---\n# One {#sec:one}\n---\ntitle: tail\n---\nno labels here\n"
	pages := Pages(text)
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1: %q", len(pages), pages)
	}
}

func TestIDs_BibtexBlock(t *testing.T) {
	page := "---\ntitle: x\nbibtex: |\n    @article{refA,\n      title = {A}\n    }\n\n    @book{refB,\n    }\nkeywords: [k]\n---\n# Heading {#fig:plot}\n@notAnID{x,\n"
	ids := IDs(page).Sorted()
	want := []string{"fig:plot", "refA", "refB"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestIDs_EntriesOutsideBibtexIgnored(t *testing.T) {
	page := "---\nnote: |\n    @article{nope,\n---\n"
	if ids := IDs(page); len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids.Sorted())
	}
}

func TestCites_ExcludesSelfAndFrontMatter(t *testing.T) {
	page := "---\nid: noteA\nref: '@hidden'\n---\nsee @noteA and @other-key:1, also [@sec:intro].\n# Intro {#sec:intro}\n"
	got := Cites(page).Sorted()
	want := []string{"other-key:1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("cites = %v, want %v", got, want)
	}
}

func TestCites_SelfCitationOfBibEntry(t *testing.T) {
	page := "---\nbibtex: |\n    @article{refX,\n    }\n---\nAs argued in @refX.\n"
	if got := Cites(page); len(got) != 0 {
		t.Errorf("cites = %v, want empty", got.Sorted())
	}
}

func TestCites_ExplicitIDIsNotACitation(t *testing.T) {
	page := "---\nid: noteA\n---\nsee @noteA\n"
	if got := Cites(page); len(got) != 0 {
		t.Errorf("cites = %v, want empty", got.Sorted())
	}
	if ids := IDs(page); !ids.Has("noteA") {
		t.Errorf("ids = %v, want noteA", ids.Sorted())
	}
}

func TestCites_NonASCIIKeys(t *testing.T) {
	page := "see @Müller2020 here, and [@Śmigły-Rydz; @東京:1].\n"
	got := Cites(page).Sorted()
	want := []string{"Müller2020", "Śmigły-Rydz", "東京:1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("cites = %v, want %v", got, want)
	}
}

func TestIDs_IDList(t *testing.T) {
	page := "---\nid:\n  - one\n  - two\nother: [x]\n---\n"
	got := IDs(page).Sorted()
	if strings.Join(got, ",") != "one,two" {
		t.Errorf("ids = %v", got)
	}
	flow := IDs("---\nid: [a, 'b']\n---\n").Sorted()
	if strings.Join(flow, ",") != "a,b" {
		t.Errorf("flow ids = %v", flow)
	}
}
