package editor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukes-snr/EazyUi-sub001/bridge"
	"github.com/dukes-snr/EazyUi-sub001/designstore"
	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/patch"
	"github.com/dukes-snr/EazyUi-sub001/safety"
	"github.com/dukes-snr/EazyUi-sub001/shield"
)

// maxRequestBody caps JSON request bodies so handlers stay safe even when
// mounted without the shield middleware stack.
const maxRequestBody = safety.MaxResponseBody

// RegisterHTTP mounts the editor API on a chi router.
func (e *Editor) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", e.handleHealth)

	r.Get("/screens", e.handleListScreens)
	r.Get("/screens/{id}", e.handleGetScreen)
	r.Put("/screens/{id}", e.handleSaveScreen)
	r.Delete("/screens/{id}", e.handleRemoveScreen)

	r.Post("/edit/{id}", e.handleEnterEdit)
	r.Post("/edit/{id}/switch", e.handleSwitchEdit)
	r.Post("/edit/exit", e.handleExitEdit)
	r.Get("/edit/state", e.handleState)

	r.Post("/edit/patch", e.handlePatch)
	r.Post("/edit/undo", e.handleUndo)
	r.Post("/edit/redo", e.handleRedo)
	r.Get("/edit/query", e.handleQuery)

	r.Post("/edit/select", e.handleSelect)
	r.Post("/edit/select_parent", e.handleSelectParent)
	r.Post("/edit/select_container", e.handleSelectContainer)
	r.Post("/edit/clear_selection", e.handleClearSelection)
	r.Post("/edit/delete_selected", e.handleDeleteSelected)
	r.Post("/edit/pointer", e.handlePointer)
}

// Middleware returns the shield stack for the editor API, backed by the
// design database for rate-limit rules.
func (e *Editor) Middleware() []func(http.Handler) http.Handler {
	if err := shield.Init(e.store.DB); err != nil {
		e.logger.Warn("editor: shield schema", "error", err)
	}
	return shield.DefaultAPIStack(e.store.DB)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// readJSON decodes a bounded request body into v. Writes the 400 itself and
// returns false when the body is oversized or malformed.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := safety.LimitedReadAll(r.Body, maxRequestBody)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func errorStatus(err error) int {
	if errors.Is(err, bridge.ErrNoSession) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (e *Editor) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (e *Editor) handleListScreens(w http.ResponseWriter, r *http.Request) {
	screens, err := e.store.ListScreens(r.Context(), r.URL.Query().Get("status"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// The list view never needs full documents.
	for _, s := range screens {
		s.HTML = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"screens": screens})
}

func (e *Editor) handleGetScreen(w http.ResponseWriter, r *http.Request) {
	scr, err := e.store.GetScreen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if scr == nil {
		writeError(w, http.StatusNotFound, errors.New("screen not found"))
		return
	}
	writeJSON(w, http.StatusOK, scr)
}

// SaveScreenRequest is the body for PUT /screens/{id}.
type SaveScreenRequest struct {
	HTML   string `json:"html"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (e *Editor) handleSaveScreen(w http.ResponseWriter, r *http.Request) {
	var req SaveScreenRequest
	if !readJSON(w, r, &req) {
		return
	}
	var opts []designstore.UpdateOption
	if req.Name != "" {
		opts = append(opts, designstore.WithName(req.Name))
	}
	if req.Status != "" {
		opts = append(opts, designstore.WithStatus(req.Status))
	}
	if req.Width > 0 && req.Height > 0 {
		opts = append(opts, designstore.WithSize(req.Width, req.Height))
	}
	if err := e.SaveScreen(r.Context(), chi.URLParam(r, "id"), req.HTML, opts...); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (e *Editor) handleRemoveScreen(w http.ResponseWriter, r *http.Request) {
	if err := e.RemoveScreen(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (e *Editor) handleEnterEdit(w http.ResponseWriter, r *http.Request) {
	state, err := e.EnterEdit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (e *Editor) handleSwitchEdit(w http.ResponseWriter, r *http.Request) {
	state, err := e.SwitchEdit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (e *Editor) handleExitEdit(w http.ResponseWriter, r *http.Request) {
	if err := e.ExitEdit(r.Context()); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

func (e *Editor) handleState(w http.ResponseWriter, r *http.Request) {
	state := e.State()
	if state == nil {
		writeError(w, http.StatusNotFound, errors.New("no active edit session"))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (e *Editor) handlePatch(w http.ResponseWriter, r *http.Request) {
	var p patch.Patch
	if !readJSON(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := e.PushPatch(r.Context(), p); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

func (e *Editor) handleUndo(w http.ResponseWriter, r *http.Request) {
	moved, err := e.Undo(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "state": e.State()})
}

func (e *Editor) handleRedo(w http.ResponseWriter, r *http.Request) {
	moved, err := e.Redo(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "state": e.State()})
}

func (e *Editor) handleQuery(w http.ResponseWriter, r *http.Request) {
	sel := r.URL.Query().Get("selector")
	if sel == "" {
		writeError(w, http.StatusBadRequest, errors.New("selector required"))
		return
	}
	uids, err := e.QuerySelector(sel)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uids": uids})
}

// SelectRequest is the body for POST /edit/select.
type SelectRequest struct {
	UID string `json:"uid"`
}

func (e *Editor) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.UID == "" {
		writeError(w, http.StatusBadRequest, errors.New("uid required"))
		return
	}
	if err := e.SelectUID(req.UID); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (e *Editor) handleSelectParent(w http.ResponseWriter, r *http.Request) {
	e.simpleCommand(w, e.SelectParent)
}

func (e *Editor) handleSelectContainer(w http.ResponseWriter, r *http.Request) {
	e.simpleCommand(w, e.SelectContainer)
}

func (e *Editor) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	e.simpleCommand(w, e.ClearSelection)
}

func (e *Editor) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	e.simpleCommand(w, e.DeleteSelected)
}

func (e *Editor) simpleCommand(w http.ResponseWriter, cmd func() error) {
	if err := cmd(); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// PointerRequest is the body for POST /edit/pointer.
type PointerRequest struct {
	Path  dom.NodePath `json:"path"`
	Click bool         `json:"click,omitempty"`
}

func (e *Editor) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == nil {
		writeError(w, http.StatusBadRequest, errors.New("path required"))
		return
	}
	var err error
	if req.Click {
		err = e.Click(req.Path)
	} else {
		err = e.PointerMove(req.Path)
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
