// Package render mounts checkbox controls into the table cells of rendered
// Markdown.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/cellcheck/internal/checkbox"
)

// ClassName is set on every mounted checkbox input.
const ClassName = "cp-checkbox"

var (
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	policy = bluemonday.UGCPolicy()
)

// Control is a checkbox mounted into a rendered table cell.
type Control struct {
	Cell      *html.Node
	State     checkbox.State
	Remainder string
	onToggle  func(checkbox.State) error
}

// Toggle reports the new state to the callback the control was bound with.
func (c Control) Toggle(checked bool) error {
	return c.onToggle(c.State.Toggled(checked))
}

// Render converts Markdown to a sanitized HTML tree. The result is wrapped in
// a <div> so it can be serialized as a fragment.
func Render(src []byte) (*html.Node, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render: convert markdown: %w", err)
	}
	clean := policy.SanitizeReader(&buf)

	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(clean, container)
	if err != nil {
		return nil, fmt.Errorf("render: parse html: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// Bind walks every table cell under root, and for each cell whose text starts
// with an annotated checkbox replaces the cell content with a checkbox input
// followed by the rest of the text. Cells that do not match, or that open
// with inline code, are left alone.
func Bind(root *html.Node, onToggle func(checkbox.State) error) []Control {
	var controls []Control
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
			if c, ok := bindCell(n, onToggle); ok {
				controls = append(controls, c)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return controls
}

// HTML serializes the children of root.
func HTML(root *html.Node) (string, error) {
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("render: serialize: %w", err)
		}
	}
	return b.String(), nil
}

func bindCell(cell *html.Node, onToggle func(checkbox.State) error) (Control, bool) {
	// A marker inside inline code is literal text, never a checkbox.
	if first := firstContent(cell); first != nil && first.DataAtom == atom.Code {
		return Control{}, false
	}
	content := textContent(cell)
	state, ok := checkbox.Rendered.Parse(content)
	if !ok {
		return Control{}, false
	}
	rest := checkbox.Rendered.StripPrefix(content)

	for c := cell.FirstChild; c != nil; {
		next := c.NextSibling
		cell.RemoveChild(c)
		c = next
	}
	cell.AppendChild(mountControl(state, rest))

	return Control{
		Cell:      cell,
		State:     state,
		Remainder: rest,
		onToggle:  onToggle,
	}, true
}

// mountControl builds <span><input type="checkbox"><span>rest</span></span>.
func mountControl(state checkbox.State, rest string) *html.Node {
	input := &html.Node{
		Type:     html.ElementNode,
		Data:     "input",
		DataAtom: atom.Input,
		Attr: []html.Attribute{
			{Key: "type", Val: "checkbox"},
			{Key: "class", Val: ClassName},
			{Key: "data-cp-id", Val: strconv.Itoa(state.ID)},
		},
	}
	if state.Checked {
		input.Attr = append(input.Attr, html.Attribute{Key: "checked"})
	}

	inner := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	inner.AppendChild(&html.Node{Type: html.TextNode, Data: rest})

	wrapper := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	wrapper.AppendChild(input)
	wrapper.AppendChild(inner)
	return wrapper
}

// firstContent returns the first child of n that is not blank text.
func firstContent(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		return c
	}
	return nil
}

// textContent concatenates the text of n's descendants.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
