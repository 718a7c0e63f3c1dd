// Package parser extracts frontmatter, title, tags and table checkboxes from
// Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/mdsyntax"
	"github.com/starford/cellcheck/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
	Title       string
	// Checkboxes lists annotated checkboxes in document order. Unannotated
	// cells are left out until the allocation pass numbers them.
	Checkboxes []models.Checkbox
	Stats      checkbox.Stats
}

// Parse extracts frontmatter, body, tags and checkboxes from raw Markdown
// bytes. Path is copied into every checkbox.
func Parse(path string, data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	text := string(data)
	occs := mdsyntax.Checkboxes(text)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
		Checkboxes:  collectCheckboxes(path, text, occs),
		Stats:       checkbox.Summarize(occs),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

func collectCheckboxes(path, text string, occs []checkbox.Occurrence) []models.Checkbox {
	out := make([]models.Checkbox, 0, len(occs))
	for _, o := range occs {
		if !o.Annotated {
			continue
		}
		out = append(out, models.Checkbox{
			Path:    path,
			ID:      o.ID,
			Checked: o.Checked,
			Label:   o.Label(text),
		})
	}
	return out
}

// extractTags collects #tags from body and from the frontmatter "tags" list.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if list, ok := fm["tags"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(strings.TrimSpace(s))
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
