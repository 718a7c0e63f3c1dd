// Package session hosts live editing sessions: an in-memory copy of a note
// with a selection, a viewport and change notifications, to which the
// checkbox engine attaches.
package session

import (
	"fmt"
	"iter"
	"sort"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/mdsyntax"
)

// Event is a host notification.
type Event int

// Notifications delivered to subscribers.
const (
	DocumentChanged Event = iota
	ViewportChanged
	SelectionChanged
	FileOpened
)

// Document is the editing host of one session. It is not safe for concurrent
// use; Session serializes every call.
//
// Notifications raised while subscribers run are queued and delivered after
// the current subscriber returns, so each handler runs to completion before
// the next one starts and always reads fresh text.
type Document struct {
	text     string
	tree     *mdsyntax.Tree
	sel      checkbox.Range
	visible  []checkbox.Range
	handlers map[Event][]func()

	queue       []Event
	dispatching bool
}

// NewDocument returns a document holding text with the cursor at 0.
func NewDocument(text string) *Document {
	return &Document{
		text:     text,
		handlers: make(map[Event][]func()),
	}
}

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// Selection returns the main selection.
func (d *Document) Selection() checkbox.Range { return d.sel }

// VisibleRanges returns the viewport clamped to the current text. With no
// viewport set the whole document is visible.
func (d *Document) VisibleRanges() []checkbox.Range {
	if len(d.visible) == 0 {
		return []checkbox.Range{{From: 0, To: len(d.text)}}
	}
	out := make([]checkbox.Range, 0, len(d.visible))
	for _, r := range d.visible {
		out = append(out, checkbox.Range{From: clamp(r.From, len(d.text)), To: clamp(r.To, len(d.text))})
	}
	return out
}

// Nodes iterates structural nodes of the current text.
func (d *Document) Nodes(r checkbox.Range, match func(mdsyntax.Node) bool) iter.Seq[mdsyntax.Node] {
	if d.tree == nil {
		d.tree = mdsyntax.Parse([]byte(d.text))
	}
	return d.tree.Nodes(r, match)
}

// ReplaceRange replaces [from, to) with text.
func (d *Document) ReplaceRange(from, to int, text string) error {
	return d.ApplyEdits([]checkbox.Edit{{From: from, To: to, Text: text}})
}

// ApplyEdits applies edits computed against the current text as a single
// change and raises one DocumentChanged notification.
func (d *Document) ApplyEdits(edits []checkbox.Edit) error {
	if len(edits) == 0 {
		return nil
	}
	sorted := make([]checkbox.Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	prev := 0
	for _, e := range sorted {
		if e.From < prev || e.From > e.To || e.To > len(d.text) {
			return fmt.Errorf("session: edit [%d,%d) on %d bytes: %w", e.From, e.To, len(d.text), apperr.ErrInvalidRange)
		}
		prev = e.To
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		d.sel = checkbox.Range{From: mapPos(d.sel.From, sorted[i]), To: mapPos(d.sel.To, sorted[i])}
	}
	d.setText(checkbox.ApplyEdits(d.text, sorted))
	return nil
}

// SetSelection moves the main selection.
func (d *Document) SetSelection(r checkbox.Range) error {
	if r.From < 0 || r.From > r.To || r.To > len(d.text) {
		return fmt.Errorf("session: selection [%d,%d) on %d bytes: %w", r.From, r.To, len(d.text), apperr.ErrInvalidRange)
	}
	d.sel = r
	d.emit(SelectionChanged)
	return nil
}

// SetViewport replaces the visible ranges.
func (d *Document) SetViewport(ranges []checkbox.Range) error {
	for _, r := range ranges {
		if r.From < 0 || r.From > r.To {
			return fmt.Errorf("session: viewport [%d,%d): %w", r.From, r.To, apperr.ErrInvalidRange)
		}
	}
	d.visible = append([]checkbox.Range(nil), ranges...)
	d.emit(ViewportChanged)
	return nil
}

// Reload replaces the whole text, as after an edit made outside the session.
func (d *Document) Reload(text string) {
	if text == d.text {
		return
	}
	d.sel = checkbox.Range{From: clamp(d.sel.From, len(text)), To: clamp(d.sel.To, len(text))}
	d.setText(text)
}

// Open raises FileOpened.
func (d *Document) Open() { d.emit(FileOpened) }

// OnDocumentChanged subscribes fn to text changes.
func (d *Document) OnDocumentChanged(fn func()) { d.on(DocumentChanged, fn) }

// OnViewportChanged subscribes fn to viewport changes.
func (d *Document) OnViewportChanged(fn func()) { d.on(ViewportChanged, fn) }

// OnSelectionChanged subscribes fn to selection changes.
func (d *Document) OnSelectionChanged(fn func()) { d.on(SelectionChanged, fn) }

// OnFileOpened subscribes fn to the open notification.
func (d *Document) OnFileOpened(fn func()) { d.on(FileOpened, fn) }

func (d *Document) on(ev Event, fn func()) {
	d.handlers[ev] = append(d.handlers[ev], fn)
}

func (d *Document) setText(text string) {
	d.text = text
	d.tree = nil
	d.emit(DocumentChanged)
}

func (d *Document) emit(ev Event) {
	d.queue = append(d.queue, ev)
	if d.dispatching {
		return
	}
	d.dispatching = true
	defer func() { d.dispatching = false }()

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		for _, fn := range d.handlers[next] {
			fn()
		}
	}
}

// mapPos maps a position through one edit. A cursor sitting exactly at an
// insertion point ends up after the inserted text.
func mapPos(pos int, e checkbox.Edit) int {
	switch {
	case pos < e.From:
		return pos
	case pos == e.From && e.From != e.To:
		return pos
	case pos >= e.To:
		return pos + len(e.Text) - (e.To - e.From)
	default:
		return e.From + len(e.Text)
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
