package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/session"
)

// sessionFromURL resolves the {id} parameter, writing 404 on miss.
func (h *Handler) sessionFromURL(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, "get session", err)
		return nil, false
	}
	return sess, true
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open a live editing session on a note
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Note to open"
//	@Success		201		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"too many sessions"
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	sess, err := h.svc.OpenSession(r.Context(), req.Path)
	if err != nil {
		writeServiceError(w, h.logger, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the text, selection, viewport and overlays of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSelection handles PUT /api/sessions/{id}/selection.
//
//	@Summary		Move the selection; overlays under it are suppressed
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			body	body		SelectionRequest	true	"Selection"
//	@Success		200		{object}	SessionResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/selection [put]
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromURL(w, r)
	if !ok {
		return
	}
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := sess.Select(rangeOf(req))
	if err != nil {
		writeServiceError(w, h.logger, "set selection", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetViewport handles PUT /api/sessions/{id}/viewport.
//
//	@Summary		Replace the visible ranges
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		ViewportRequest	true	"Visible ranges"
//	@Success		200		{object}	SessionResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/viewport [put]
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromURL(w, r)
	if !ok {
		return
	}
	var req ViewportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := sess.Scroll(req.Ranges)
	if err != nil {
		writeServiceError(w, h.logger, "set viewport", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ApplyEdits handles POST /api/sessions/{id}/edits.
//
//	@Summary		Apply typed edits to the session text
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		EditsRequest	true	"Edits in order"
//	@Success		200		{object}	SessionResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/edits [post]
func (h *Handler) ApplyEdits(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromURL(w, r)
	if !ok {
		return
	}
	var req EditsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Edits) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("edits are required"))
		return
	}
	snap := sess.Snapshot()
	for _, e := range req.Edits {
		var err error
		if snap, err = sess.Replace(e); err != nil {
			writeServiceError(w, h.logger, "apply edit", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

// ToggleOverlay handles POST /api/sessions/{id}/overlays/{cid}/toggle.
//
//	@Summary		Toggle a live checkbox overlay
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session ID"
//	@Param			cid		path		int						true	"Checkbox identity"
//	@Param			body	body		OverlayToggleRequest	true	"New state"
//	@Success		200		{object}	SessionResponse
//	@Failure		409		{object}	errResponse	"stale or suppressed"
//	@Security		BearerAuth
//	@Router			/sessions/{id}/overlays/{cid}/toggle [post]
func (h *Handler) ToggleOverlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromURL(w, r)
	if !ok {
		return
	}
	cid, err := strconv.Atoi(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("checkbox id must be an integer"))
		return
	}
	var req OverlayToggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Checked == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("checked is required"))
		return
	}
	snap, err := sess.Toggle(cid, *req.Checked)
	if err != nil {
		writeServiceError(w, h.logger, "toggle overlay", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func rangeOf(req SelectionRequest) checkbox.Range {
	return checkbox.Range{From: req.From, To: req.To}
}
