package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// notePath extracts the note path from the wildcard part of the URL.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// requirePath writes 400 and returns false when the wildcard path is empty.
func requirePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", false
	}
	return path, true
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeServiceError(w, h.logger, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeServiceError(w, h.logger, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeServiceError(w, h.logger, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeServiceError(w, h.logger, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		writeServiceError(w, h.logger, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes and checkbox labels
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, h.logger, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
