// Package bib splits bibliography text into entries and resolves requested
// citekeys into literal entries, following crossref/xref dependencies.
package bib

import (
	"regexp"
	"strings"
)

var (
	// boundaryRe marks the start of every entry after the first: a newline,
	// optional whitespace, then '@'.
	boundaryRe = regexp.MustCompile(`\n\s*@`)
	headerRe   = regexp.MustCompile(`^@([A-Za-z]+)\s*[{(]\s*([^,\s{}()]+)\s*,`)
	depRe      = regexp.MustCompile(`(?i)\b(?:crossref|xref)\s*=\s*(?:\{\s*([^{}]+?)\s*\}|"\s*([^"]+?)\s*")`)
)

// Entry is one literal bibliography entry.
type Entry struct {
	Type string
	Key  string
	Text string
}

// nonEntryTypes are bibliography commands that carry no citekey.
var nonEntryTypes = map[string]struct{}{
	"comment":  {},
	"string":   {},
	"preamble": {},
}

// Split cuts raw bibliography text on entry boundaries. Text before the
// first '@' and non-entry commands are dropped. Each entry keeps its own
// text with trailing blank lines trimmed.
func Split(raw string) []Entry {
	var out []Entry
	for _, chunk := range splitChunks(raw) {
		chunk = strings.TrimRight(strings.TrimLeft(chunk, " \t\r\n"), " \t\r\n")
		if !strings.HasPrefix(chunk, "@") {
			continue
		}
		typ, key, ok := Header(chunk)
		if !ok {
			continue
		}
		out = append(out, Entry{Type: typ, Key: key, Text: chunk})
	}
	return out
}

func splitChunks(raw string) []string {
	locs := boundaryRe.FindAllStringIndex(raw, -1)
	chunks := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		at := loc[1] - 1 // position of '@'
		chunks = append(chunks, raw[start:at])
		start = at
	}
	return append(chunks, raw[start:])
}

// Header parses "@type{key," at the start of entry text. Bibliography
// commands such as @string and @comment are rejected.
func Header(text string) (typ, key string, ok bool) {
	m := headerRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	if _, skip := nonEntryTypes[strings.ToLower(m[1])]; skip {
		return "", "", false
	}
	return m[1], m[2], true
}

// Keys returns the entry keys of raw in text order.
func Keys(raw string) []string {
	entries := Split(raw)
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Dependencies returns the crossref and xref targets named in entry text.
// xref may list several comma separated keys.
func Dependencies(text string) []string {
	var deps []string
	for _, m := range depRe.FindAllStringSubmatch(text, -1) {
		val := m[1]
		if val == "" {
			val = m[2]
		}
		for _, k := range strings.Split(val, ",") {
			if k = strings.TrimSpace(k); k != "" {
				deps = append(deps, k)
			}
		}
	}
	return deps
}

// IsCollection reports whether typ names a collection-type entry, which
// only exists to be crossref'd by its parts.
func IsCollection(typ string) bool {
	switch strings.ToLower(typ) {
	case "collection", "mvcollection", "proceedings", "mvproceedings":
		return true
	}
	return false
}
