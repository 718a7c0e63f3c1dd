// Package mdsyntax exposes the structural nodes of a Markdown document that
// the checkbox engine needs, without the engine having to parse Markdown
// itself. Tables are recognized with goldmark's GFM table extension and each
// cell is reported as a separator node starting at the pipe that opens it.
// Code blocks and code spans are reported too: checkbox cells written inside
// code are examples, not checkboxes.
package mdsyntax

import (
	"iter"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/cellcheck/internal/checkbox"
)

// Node kinds.
const (
	KindTable    = "table"
	KindTableSep = "table-sep"
	KindCode     = "code"
)

// Node is a structural node with byte offsets into the source.
type Node struct {
	Kind string
	From int
	To   int
}

// Range returns [From, To).
func (n Node) Range() checkbox.Range {
	return checkbox.Range{From: n.From, To: n.To}
}

// IsTableSep matches table-row-separator nodes.
func IsTableSep(n Node) bool { return n.Kind == KindTableSep }

// IsCode matches code blocks and code spans.
func IsCode(n Node) bool { return n.Kind == KindCode }

// Tree is the flattened node list of one document version.
type Tree struct {
	nodes []Node
}

var parser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// Parse builds the tree for src.
func Parse(src []byte) *Tree {
	root := parser.Parse(text.NewReader(src))

	var nodes []Node
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *east.Table:
			nodes = append(nodes, tableNodes(n, src)...)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if from, to, ok := linesSpan(n); ok {
				nodes = append(nodes, Node{Kind: KindCode, From: from, To: to})
			}
		case *ast.CodeSpan:
			if from, to, ok := textSpan(n); ok {
				nodes = append(nodes, Node{Kind: KindCode, From: from, To: to})
			}
		default:
			return ast.WalkContinue, nil
		}
		return ast.WalkSkipChildren, nil
	})

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].From < nodes[j].From })
	return &Tree{nodes: nodes}
}

// Nodes yields the nodes intersecting r that satisfy match, in document
// order. A nil match yields every node.
func (t *Tree) Nodes(r checkbox.Range, match func(Node) bool) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range t.nodes {
			if !n.Range().Intersects(r) {
				continue
			}
			if match != nil && !match(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

func tableNodes(table *east.Table, src []byte) []Node {
	var seps []Node
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			start, end, ok := cellContent(cell)
			if !ok {
				continue
			}
			pipe, ok := openingPipe(src, start)
			if !ok {
				continue
			}
			seps = append(seps, Node{Kind: KindTableSep, From: pipe, To: end})
		}
	}
	if len(seps) == 0 {
		return nil
	}
	out := make([]Node, 0, len(seps)+1)
	out = append(out, Node{Kind: KindTable, From: seps[0].From, To: seps[len(seps)-1].To})
	return append(out, seps...)
}

// Checkboxes returns the checkbox cells of text in document order, leaving
// out those written inside code.
func Checkboxes(text string) []checkbox.Occurrence {
	occs := checkbox.Scan(text)
	if len(occs) == 0 {
		return occs
	}
	tree := Parse([]byte(text))
	var code []Node
	for n := range tree.Nodes(checkbox.Range{From: 0, To: len(text)}, IsCode) {
		code = append(code, n)
	}
	if len(code) == 0 {
		return occs
	}

	out := occs[:0]
	for _, occ := range occs {
		if !inside(code, occ.Delim) {
			out = append(out, occ)
		}
	}
	return out
}

func inside(nodes []Node, pos int) bool {
	for _, n := range nodes {
		if n.From <= pos && pos < n.To {
			return true
		}
	}
	return false
}

// cellContent returns the source span of a cell's content.
func cellContent(cell ast.Node) (int, int, bool) {
	if start, end, ok := linesSpan(cell); ok {
		return start, end, true
	}
	return textSpan(cell)
}

// linesSpan returns the source span covered by a block's lines.
func linesSpan(n ast.Node) (int, int, bool) {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0, 0, false
	}
	return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
}

// textSpan returns the source span of the text nodes under n.
func textSpan(n ast.Node) (int, int, bool) {
	var start, end int
	found := false
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		t, ok := n.(*ast.Text)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if !found {
			start = t.Segment.Start
			found = true
		}
		end = t.Segment.Stop
		return ast.WalkContinue, nil
	})
	return start, end, found
}

// openingPipe walks back from a cell's content over spaces to the pipe that
// opens the cell. Cells without a leading pipe have none.
func openingPipe(src []byte, start int) (int, bool) {
	i := start - 1
	for i >= 0 && (src[i] == ' ' || src[i] == '\t') {
		i--
	}
	if i < 0 || src[i] != '|' {
		return 0, false
	}
	return i, true
}
