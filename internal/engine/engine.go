// Package engine connects the identity allocator and the overlay builder to
// the notifications of an editing host.
package engine

import (
	"log/slog"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/enumerate"
	"github.com/starford/cellcheck/internal/overlay"
)

// Host is an editing surface that delivers change notifications. Callbacks
// are invoked synchronously and one at a time.
type Host interface {
	overlay.Host
	// ApplyEdits applies edits computed against the current text as one
	// change.
	ApplyEdits(edits []checkbox.Edit) error
	OnDocumentChanged(fn func())
	OnViewportChanged(fn func())
	OnSelectionChanged(fn func())
	OnFileOpened(fn func())
}

// Engine keeps a host's identities repaired and its overlays current.
type Engine struct {
	host     Host
	logger   *slog.Logger
	overlays []overlay.Descriptor
}

// Attach subscribes a new Engine to h.
func Attach(h Host, logger *slog.Logger) *Engine {
	e := &Engine{host: h, logger: logger}

	h.OnFileOpened(e.repair)
	h.OnFileOpened(e.rebuild)
	h.OnDocumentChanged(e.repair)
	h.OnDocumentChanged(e.rebuild)
	h.OnViewportChanged(e.rebuild)
	h.OnSelectionChanged(e.rebuild)

	return e
}

// Overlays returns the descriptors of the last rebuild.
func (e *Engine) Overlays() []overlay.Descriptor {
	return e.overlays
}

// Overlay returns the current overlay for checkbox id.
func (e *Engine) Overlay(id int) (overlay.Descriptor, bool) {
	for _, d := range e.overlays {
		if d.State.ID == id {
			return d, true
		}
	}
	return overlay.Descriptor{}, false
}

// repair runs the allocation pass against fresh text. Its own edit raises
// another document change; that second pass plans nothing.
func (e *Engine) repair() {
	edits := enumerate.Plan(e.host.Text())
	if len(edits) == 0 {
		return
	}
	if err := e.host.ApplyEdits(edits); err != nil {
		e.logger.Warn("engine: apply identity edits failed", slog.String("error", err.Error()))
		return
	}
	e.logger.Debug("engine: identities repaired", slog.Int("edits", len(edits)))
}

func (e *Engine) rebuild() {
	e.overlays = overlay.Build(e.host)
}
