package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cellcheck/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	r.Get("/search", h.Search)

	// Checkboxes on stored notes.
	r.Post("/open/*", h.OpenNote)
	r.Get("/checkboxes", h.ListCheckboxes)
	r.Get("/checkboxes/*", h.NoteCheckboxes)
	r.Post("/checkboxes/*", h.ToggleCheckbox)
	r.Post("/enumerate/*", h.EnumerateNote)
	r.Get("/render/*", h.RenderNote)

	// Live editing sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.CloseSession)
		r.Put("/{id}/selection", h.SetSelection)
		r.Put("/{id}/viewport", h.SetViewport)
		r.Post("/{id}/edits", h.ApplyEdits)
		r.Post("/{id}/overlays/{cid}/toggle", h.ToggleOverlay)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
