package render

import (
	"html"
	"regexp"
	"strings"
)

var (
	groupRe    = regexp.MustCompile(`\[[^\[\]]*@[^\[\]]*\]`)
	citeKeyRe  = regexp.MustCompile(`(^|[^\p{L}\p{N}_@.])@([\p{L}\p{N}_](?:[\p{L}\p{N}_:-]*[\p{L}\p{N}_])?)`)
	codeSpanRe = regexp.MustCompile("`+[^`]*`+")
	fenceRe    = regexp.MustCompile("^ {0,3}(```|~~~)")
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"[", "&#91;",
	"]", "&#93;",
)

// MarkCitations wraps every citation in src with a citation group element.
// Bracketed groups such as "[see @a; @b, p. 3]" become one element listing
// both keys; a bare "@key" becomes a single-key group. Fenced code, code
// spans and link texts are left alone.
func MarkCitations(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	fence := ""
	for _, line := range strings.SplitAfter(src, "\n") {
		if fence != "" {
			if strings.HasPrefix(strings.TrimLeft(line, " "), fence) {
				fence = ""
			}
			b.WriteString(line)
			continue
		}
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			fence = m[1]
			b.WriteString(line)
			continue
		}
		markLine(&b, line)
	}
	return b.String()
}

func markLine(b *strings.Builder, line string) {
	last := 0
	for _, loc := range codeSpanRe.FindAllStringIndex(line, -1) {
		markText(b, line[last:loc[0]])
		b.WriteString(line[loc[0]:loc[1]])
		last = loc[1]
	}
	markText(b, line[last:])
}

func markText(b *strings.Builder, s string) {
	last := 0
	for _, loc := range groupRe.FindAllStringIndex(s, -1) {
		markBare(b, s[last:loc[0]])
		group := s[loc[0]:loc[1]]
		keys := citeKeys(group)
		if isLinkText(s, loc[1]) || len(keys) == 0 {
			b.WriteString(group)
		} else {
			writeGroup(b, keys, group)
		}
		last = loc[1]
	}
	markBare(b, s[last:])
}

func markBare(b *strings.Builder, s string) {
	last := 0
	for _, m := range citeKeyRe.FindAllStringSubmatchIndex(s, -1) {
		at := m[3] // end of the preceding character group
		b.WriteString(s[last:at])
		writeGroup(b, []string{s[m[4]:m[5]]}, s[at:m[1]])
		last = m[1]
	}
	b.WriteString(s[last:])
}

// isLinkText reports whether the bracket closing at end starts a link,
// image or reference definition rather than a citation group.
func isLinkText(s string, end int) bool {
	if end >= len(s) {
		return false
	}
	switch s[end] {
	case '(', '[', ':':
		return true
	}
	return false
}

func citeKeys(group string) []string {
	var keys []string
	for _, m := range citeKeyRe.FindAllStringSubmatch(group, -1) {
		keys = append(keys, m[2])
	}
	return keys
}

func writeGroup(b *strings.Builder, keys []string, text string) {
	b.WriteString(`<span class="citation" data-cites="`)
	b.WriteString(html.EscapeString(strings.Join(keys, " ")))
	b.WriteString(`">`)
	b.WriteString(textEscaper.Replace(text))
	b.WriteString(`</span>`)
}
