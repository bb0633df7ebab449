package mcpserver

// NoteFormatContract describes the Markdown and BibTeX conventions jotter
// indexes. LLM consumers should follow it when drafting notes.
const NoteFormatContract = `# Jotter Note Format Contract

A jotter tree is a directory containing a ` + "`.jotter/`" + ` marker directory.
Every ` + "`.md`" + ` and ` + "`.bib`" + ` file below it (hidden paths excluded) is indexed.

## Markdown notes

` + "```" + `markdown
---
id: smith2020-notes                 # OPTIONAL – citekey or YAML list of citekeys
title: Reading notes on Smith 2020  # OPTIONAL – defaults to the sole citekey or file name
keywords: [physics, reading]        # OPTIONAL – YAML list; feeds the keyword index
kind: note                          # OPTIONAL – note | excerpt | bibtex
bibtex: |                           # OPTIONAL – embedded entries make the file an excerpt
  @article{smith2020,
    title = {Quarks}
  }
---

# Summary {#sec:summary}

As argued in [@smith2020, p. 4], see also @sec:summary.
` + "```" + `

## Rules

1. **Front matter is optional.** It opens and closes with a ` + "`---`" + ` line; ` + "`...`" + `
   also closes a block. A file may carry several blocks; each starts a page.
2. **Citekeys.** Without ` + "`id`" + ` a note is registered as ` + "`note:<file name>`" + `.
   Keys in an embedded ` + "`bibtex`" + ` block are registered as well. A later file
   reusing a key overrides the earlier one and a warning is emitted.
3. **Labels.** Headings may carry ` + "`{#kind:name}`" + ` where kind is one of
   ` + "`sec fig tbl lst eq`" + `. A labelled heading after a front-matter block
   starts a new page.
4. **Citations.** ` + "`[@key]`" + `, ` + "`[@a; @b]`" + ` and bare ` + "`@key`" + ` cite a citekey or a
   label. ` + "`@this`" + ` refers to the current document. Unknown keys stay plain text
   and are reported.
5. **Keywords** must be a YAML list. A scalar value is skipped with a warning.

## Bibliography files

A ` + "`.bib`" + ` file is indexed as kind ` + "`bibtex`" + `; every ` + "`@type{key,`" + ` header
registers ` + "`key`" + `. ` + "`crossref`" + ` and ` + "`xref`" + ` fields name dependencies that
` + "`get_bibliography`" + ` can follow.
`
