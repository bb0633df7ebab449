package parser

import (
	"regexp"
	"sort"
	"strings"
)

// State is the position of a line scan relative to front-matter blocks.
type State int

const (
	// Outside: no front-matter block has been opened yet.
	Outside State = iota
	// InBlock: between an opening fence and its closing fence.
	InBlock
	// AfterBlock: in the body following a closed block.
	AfterBlock
)

func (s State) String() string {
	switch s {
	case Outside:
		return "outside"
	case InBlock:
		return "in-block"
	case AfterBlock:
		return "after-block"
	}
	return "unknown"
}

// LineClass is the scanner's classification of a trimmed line.
type LineClass int

const (
	LineText LineClass = iota
	LineBlank
	LineDashFence
	LineDotFence
	LineLabelHeading
)

var (
	dashFenceRe    = regexp.MustCompile(`^-{3,}$`)
	dotFenceRe     = regexp.MustCompile(`^\.{3,}$`)
	labelHeadingRe = regexp.MustCompile(`^#.*\{#`)
	headingIDRe    = regexp.MustCompile(`^#.*\{#([^ }]+)`)
	bibtexKeyRe    = regexp.MustCompile(`^bibtex:`)
	idKeyRe        = regexp.MustCompile(`^id:`)
	entryOpenRe    = regexp.MustCompile(`^@[A-Za-z]+\{([^,\s{}]+),`)
	citeRe         = regexp.MustCompile(`@([\p{L}\p{N}_](?:[\p{L}\p{N}_:-]*[\p{L}\p{N}_])?)`)
)

// Classify maps a raw line to its LineClass.
func Classify(line string) LineClass {
	l := strings.TrimSpace(line)
	switch {
	case l == "":
		return LineBlank
	case dashFenceRe.MatchString(l):
		return LineDashFence
	case dotFenceRe.MatchString(l):
		return LineDotFence
	case labelHeadingRe.MatchString(l):
		return LineLabelHeading
	}
	return LineText
}

// Action is what the page splitter does with a line.
type Action int

const (
	// Append adds the line to the current page.
	Append Action = iota
	// SplitAtFence emits the current page; the fence opens the next one.
	SplitAtFence
	// SplitAtHeading emits the current page if it already declares an id;
	// the heading begins the next one.
	SplitAtHeading
)

// Transition is one row of a transition table.
type Transition struct {
	Next   State
	Action Action
}

// PageTransitions drives Pages. Pairs missing from the table keep the
// state and append the line.
var PageTransitions = map[State]map[LineClass]Transition{
	Outside: {
		LineDashFence: {Next: InBlock, Action: Append},
	},
	InBlock: {
		LineDashFence: {Next: AfterBlock, Action: Append},
		LineDotFence:  {Next: AfterBlock, Action: Append},
	},
	AfterBlock: {
		LineDashFence:    {Next: InBlock, Action: SplitAtFence},
		LineLabelHeading: {Next: AfterBlock, Action: SplitAtHeading},
	},
}

// FenceTransitions drives IDs and Cites. Fence lines are consumed.
var FenceTransitions = map[State]map[LineClass]State{
	Outside: {
		LineDashFence: InBlock,
	},
	InBlock: {
		LineDashFence: AfterBlock,
		LineDotFence:  AfterBlock,
	},
	AfterBlock: {
		LineDashFence: InBlock,
	},
}

// Step looks up the page transition for (s, c).
func Step(s State, c LineClass) Transition {
	if t, ok := PageTransitions[s][c]; ok {
		return t
	}
	return Transition{Next: s, Action: Append}
}

func fenceStep(s State, c LineClass) (State, bool) {
	next, ok := FenceTransitions[s][c]
	return next, ok
}

// Pages splits one file's text into logical pages. Leading blank lines are
// skipped. The trailing page is kept only when it declares an id.
func Pages(text string) []string {
	var (
		pages []string
		buf   strings.Builder
		state = Outside
	)
	for _, line := range lines(text) {
		class := Classify(line)
		if buf.Len() == 0 && class == LineBlank {
			continue
		}
		t := Step(state, class)
		switch t.Action {
		case SplitAtFence:
			pages = append(pages, buf.String())
			buf.Reset()
		case SplitAtHeading:
			if len(IDs(buf.String())) > 0 {
				pages = append(pages, buf.String())
				buf.Reset()
			}
		}
		buf.WriteString(line)
		state = t.Next
	}
	if last := buf.String(); len(IDs(last)) > 0 {
		pages = append(pages, last)
	}
	return pages
}

// blockKey tracks which multi-line front-matter value is being read.
type blockKey int

const (
	keyNone blockKey = iota
	keyBibtex
	keyID
)

// IDs returns the identifiers a page declares: bibliography entry keys
// inside a front-matter bibtex value, the front-matter id values and inline
// {#id} markers of headings.
func IDs(page string) Set {
	ids := Set{}
	state := Outside
	key := keyNone
	for _, line := range lines(page) {
		class := Classify(line)
		if next, ok := fenceStep(state, class); ok {
			state = next
			key = keyNone
			continue
		}
		trimmed := strings.TrimSpace(line)
		if state != InBlock {
			if m := headingIDRe.FindStringSubmatch(trimmed); m != nil {
				ids.Add(m[1])
			}
			continue
		}
		if class != LineBlank && !startsIndented(line) {
			key = keyNone
		}
		switch {
		case bibtexKeyRe.MatchString(line):
			key = keyBibtex
			inline := strings.TrimSpace(strings.TrimPrefix(line, "bibtex:"))
			inline = strings.TrimLeft(inline, `|>-+"' `)
			if m := entryOpenRe.FindStringSubmatch(inline); m != nil {
				ids.Add(m[1])
			}
		case idKeyRe.MatchString(line):
			key = keyID
			for _, v := range inlineValues(strings.TrimPrefix(line, "id:")) {
				ids.Add(v)
			}
		case key == keyBibtex:
			if m := entryOpenRe.FindStringSubmatch(trimmed); m != nil {
				ids.Add(m[1])
			}
		case key == keyID && strings.HasPrefix(trimmed, "- "):
			for _, v := range inlineValues(strings.TrimPrefix(trimmed, "- ")) {
				ids.Add(v)
			}
		}
	}
	return ids
}

// inlineValues reads a YAML scalar or flow sequence written on one line.
func inlineValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Cites returns the citation keys referenced from the page body, minus the
// ids the page declares itself.
func Cites(page string) Set {
	keys := Set{}
	state := Outside
	for _, line := range lines(page) {
		if next, ok := fenceStep(state, Classify(line)); ok {
			state = next
			continue
		}
		if state == InBlock {
			continue
		}
		for _, m := range citeRe.FindAllStringSubmatch(line, -1) {
			keys.Add(m[1])
		}
	}
	return keys.Minus(IDs(page))
}

func lines(text string) []string {
	if text == "" {
		return nil
	}
	out := strings.SplitAfter(text, "\n")
	if out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// Set is an unordered set of identifiers.
type Set map[string]struct{}

// Add inserts s.
func (s Set) Add(v string) { s[v] = struct{}{} }

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Minus returns the elements of s not in other.
func (s Set) Minus(other Set) Set {
	out := Set{}
	for v := range s {
		if !other.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// Sorted returns the elements in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
