package mcpserver

// NoteFormatContract describes the Markdown note format, and in particular
// the table checkbox syntax, that LLM consumers should follow when creating
// or updating notes.
const NoteFormatContract = `# cellcheck Note Format Contract

Notes are plain Markdown files. Checklists live in GFM tables: a cell that
starts with a task marker is an interactive checkbox.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # RECOMMENDED – used in search and listings
tags:                               # OPTIONAL – YAML list; used for filtering
  - chores
---

| Task            | Owner |
|-----------------|-------|
| - [ ]{0} dishes | Alice |
| - [x]{1} laundry | Bob  |
` + "```" + `

## Checkbox rules

1. A checkbox cell starts with ` + "`" + `- [ ]` + "`" + ` (unchecked) or ` + "`" + `- [x]` + "`" + ` (checked).
   Only a space or a lowercase ` + "`" + `x` + "`" + ` is valid between the brackets.
2. The marker is immediately followed by an identity ` + "`" + `{N}` + "`" + `, a non-negative
   decimal number, and then a space, a ` + "`" + `|` + "`" + ` or the end of the line.
3. Identities are assigned by the server: 0, 1, 2... in document order.
   New checkboxes may be written without ` + "`" + `{N}` + "`" + `; they are numbered on the next
   open or sync, and existing identities are renumbered to keep the sequence.
4. Toggle a checkbox with the ` + "`" + `toggle_checkbox` + "`" + ` tool, by identity. Do not rewrite
   the note to change a single state: that can race with a live editor.
5. Only the first cell of a row line is interactive; checkboxes outside tables,
   in list items or spanning several lines are plain text.

## General rules

1. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
2. **Encoding** is UTF-8 with a trailing newline.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `).
4. **No HTML**; rendered output is sanitized.
`
