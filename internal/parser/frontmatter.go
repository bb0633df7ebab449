package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/jotter/internal/apperr"
)

var (
	openFenceRe  = regexp.MustCompile(`^-{3,}\s*$`)
	closeFenceRe = regexp.MustCompile(`^(-{3,}|\.{3,})\s*$`)
)

const maxLineSize = 1 << 20

// Extraction is the result of scanning a markdown file for YAML blocks.
type Extraction struct {
	// Blocks holds the body of every complete front-matter block, in order.
	Blocks []string
	// Content is the full text, only set when requested.
	Content string
	// Body is Content without the front-matter blocks and their fences.
	Body string
}

// ExtractFrontMatter reads r line by line and collects every YAML block.
// A block opens with a fence of three or more dashes that starts the file
// or follows a blank line, and is not itself followed by a blank line. It
// closes with a fence of dashes or dots. Unclosed blocks are discarded.
func ExtractFrontMatter(r io.Reader, keepContent bool) (*Extraction, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out       Extraction
		content   strings.Builder
		body      strings.Builder
		block     strings.Builder
		fence     string
		inBlock   bool
		pending   bool // saw an opening fence, waiting for the next line
		prevBlank = true
	)
	for sc.Scan() {
		line := sc.Text()
		if keepContent {
			content.WriteString(line)
			content.WriteByte('\n')
		}
		blank := strings.TrimSpace(line) == ""
		keep := !inBlock

		switch {
		case inBlock:
			if closeFenceRe.MatchString(line) {
				out.Blocks = append(out.Blocks, block.String())
				block.Reset()
				inBlock = false
			} else {
				block.WriteString(line)
				block.WriteByte('\n')
			}
		case pending:
			pending = false
			if blank {
				writeLine(&body, keepContent, fence)
			} else {
				keep = false
				inBlock = true
				if closeFenceRe.MatchString(line) {
					out.Blocks = append(out.Blocks, "")
					inBlock = false
				} else {
					block.WriteString(line)
					block.WriteByte('\n')
				}
			}
		case prevBlank && openFenceRe.MatchString(line):
			pending, fence, keep = true, line, false
		}
		if keep {
			writeLine(&body, keepContent, line)
		}
		prevBlank = blank
	}
	if pending {
		writeLine(&body, keepContent, fence)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrReadFailed, err)
	}
	if keepContent {
		out.Content = content.String()
		out.Body = body.String()
	}
	return &out, nil
}

func writeLine(b *strings.Builder, enabled bool, line string) {
	if enabled {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// DecodeMetadata parses the blocks as one YAML stream. Later blocks
// override keys of earlier ones. A parse failure returns an empty mapping
// and an ErrMalformedMetadata error.
func DecodeMetadata(blocks []string) (map[string]any, error) {
	meta := map[string]any{}
	if len(blocks) == 0 {
		return meta, nil
	}
	var stream strings.Builder
	for _, b := range blocks {
		stream.WriteString("---\n")
		stream.WriteString(b)
	}
	dec := yaml.NewDecoder(strings.NewReader(stream.String()))
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return map[string]any{}, fmt.Errorf("%w: %v", apperr.ErrMalformedMetadata, err)
		}
		for k, v := range doc {
			meta[k] = v
		}
	}
	return meta, nil
}
