package api

import (
	"net/http"
	"strconv"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/index"
)

// OpenNote handles POST /api/open/*.
//
//	@Summary		Open a note: repair checkbox identities and return it
//	@Tags			checkboxes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/open/{path} [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	note, err := h.svc.OpenNote(r.Context(), path)
	if err != nil {
		writeServiceError(w, h.logger, "open note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ListCheckboxes handles GET /api/checkboxes.
//
//	@Summary		Query checkboxes across the vault
//	@Tags			checkboxes
//	@Produce		json
//	@Param			checked	query		bool	false	"Filter by state"
//	@Param			path	query		string	false	"Filter by note"
//	@Param			q		query		string	false	"Filter by label text"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	CheckboxListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkboxes [get]
func (h *Handler) ListCheckboxes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := index.CheckboxQuery{Path: q.Get("path"), Text: q.Get("q")}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("checked"); raw != "" {
		checked, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("checked must be a boolean"))
			return
		}
		query.Checked = &checked
	}
	boxes, err := h.svc.ListCheckboxes(r.Context(), query)
	if err != nil {
		writeServiceError(w, h.logger, "list checkboxes", err)
		return
	}
	writeJSON(w, http.StatusOK, CheckboxListResponse{Checkboxes: boxes})
}

// NoteCheckboxes handles GET /api/checkboxes/*.
//
//	@Summary		List the checkboxes of one note with progress
//	@Tags			checkboxes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	noteservice.CheckboxList
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkboxes/{path} [get]
func (h *Handler) NoteCheckboxes(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Checkboxes(r.Context(), path)
	if err != nil {
		writeServiceError(w, h.logger, "note checkboxes", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleCheckbox handles POST /api/checkboxes/*.
//
//	@Summary		Set a checkbox of a note by identity
//	@Tags			checkboxes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Note path"
//	@Param			body	body		ToggleRequest	true	"Identity and state"
//	@Success		200		{object}	models.Checkbox
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"identity no longer exists"
//	@Security		BearerAuth
//	@Router			/checkboxes/{path} [post]
func (h *Handler) ToggleCheckbox(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == nil || req.Checked == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id and checked are required"))
		return
	}
	box, err := h.svc.ToggleCheckbox(r.Context(), path, checkbox.State{ID: *req.ID, Checked: *req.Checked})
	if err != nil {
		writeServiceError(w, h.logger, "toggle checkbox", err)
		return
	}
	writeJSON(w, http.StatusOK, box)
}

// EnumerateNote handles POST /api/enumerate/*.
//
//	@Summary		Run the identity allocator over a note
//	@Tags			checkboxes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			dry_run	query		bool	false	"Report without writing"
//	@Success		200		{object}	noteservice.EnumerateResult
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/enumerate/{path} [post]
func (h *Handler) EnumerateNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	res, err := h.svc.EnumerateNote(r.Context(), path, dryRun)
	if err != nil {
		writeServiceError(w, h.logger, "enumerate note", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RenderNote handles GET /api/render/*. With Accept: text/html the bare
// fragment is returned.
//
//	@Summary		Render a note with checkbox inputs bound to table cells
//	@Tags			checkboxes
//	@Produce		json,html
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	RenderResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/{path} [get]
func (h *Handler) RenderNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	out, err := h.svc.RenderNote(r.Context(), path)
	if err != nil {
		writeServiceError(w, h.logger, "render note", err)
		return
	}
	if r.Header.Get("Accept") == "text/html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out.HTML))
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{Path: out.Path, HTML: out.HTML, Checkboxes: out.Checkboxes})
}
