package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - lists\n---\n# Hello\nBody text.\n")
	r, err := Parse("hello.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "lists" {
		t.Errorf("tags = %v, want [go lists]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse("plain.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse("bad.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_Checkboxes(t *testing.T) {
	input := []byte("---\ntitle: Chores\n---\n| task | done |\n|---|---|\n| - [x]{0} dishes | yes |\n| - [ ]{1} laundry | no |\n| - [ ] unnumbered | no |\n")
	r, err := Parse("chores.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Checkboxes) != 2 {
		t.Fatalf("checkboxes = %+v, want 2 annotated", r.Checkboxes)
	}
	first := r.Checkboxes[0]
	if first.Path != "chores.md" || first.ID != 0 || !first.Checked || first.Label != "dishes" {
		t.Errorf("first = %+v", first)
	}
	second := r.Checkboxes[1]
	if second.ID != 1 || second.Checked || second.Label != "laundry" {
		t.Errorf("second = %+v", second)
	}
	if r.Stats.Total != 2 || r.Stats.Checked != 1 || r.Stats.Unchecked != 1 || r.Stats.Progress != 50 {
		t.Errorf("stats = %+v", r.Stats)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	body := "# H1 Title\ntext"
	title := deriveTitle(fm, body)
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
