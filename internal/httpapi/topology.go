package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"topomap/internal/topology"
	"topomap/internal/viewer"
)

const maxSuggestLimit = 100

type sessionResponse struct {
	SessionID  string              `json:"session_id"`
	Generation uint64              `json:"generation"`
	State      topology.State      `json:"state"`
	Search     string              `json:"search"`
	Snapshot   topology.Snapshot   `json:"snapshot"`
	Attributes topology.Attributes `json:"attributes"`
}

type gestureRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=selectNode deselect search hoverEdge blurEdge reset activateNode"`
	Target string `json:"target" validate:"max=512"`
}

type searchRequest struct {
	Text string `json:"text" validate:"max=512"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func toSessionResponse(id string, v topology.View) sessionResponse {
	return sessionResponse{
		SessionID:  id,
		Generation: v.Generation,
		State:      v.State,
		Search:     v.Search,
		Snapshot:   v.Snapshot,
		Attributes: v.Attributes,
	}
}

func (h *Handler) ensureViewers(w http.ResponseWriter) bool {
	if h.viewers == nil {
		h.writeError(w, http.StatusServiceUnavailable, "source_unavailable", "topology not configured", nil)
		return false
	}
	return true
}

// session resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *topology.Session, bool) {
	id := chi.URLParam(r, "id")
	if !h.ensureViewers(w) {
		return id, nil, false
	}
	s, err := h.viewers.Get(id)
	if err != nil {
		if errors.Is(err, viewer.ErrSessionNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "session not found", map[string]any{"id": id})
			return id, nil, false
		}
		h.log.Error().Err(err).Str("id", id).Msg("get session failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		return id, nil, false
	}
	return id, s, true
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.ensureViewers(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.viewers.Latest())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresh == nil {
		h.writeError(w, http.StatusServiceUnavailable, "source_unavailable", "device refresh not configured", nil)
		return
	}
	h.refresh()
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.ensureViewers(w) {
		return
	}
	id, view := h.viewers.Create()
	h.log.Debug().Str("session_id", id).Uint64("generation", view.Generation).Msg("viewer session created")
	h.writeJSON(w, http.StatusCreated, toSessionResponse(id, view))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionResponse(id, s.View()))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.ensureViewers(w) {
		return
	}
	if err := h.viewers.Delete(id); err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", map[string]any{"id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGesture(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}

	out := s.Apply(topology.Gesture{
		Kind:   topology.GestureKind(req.Kind),
		Target: strings.TrimSpace(req.Target),
	})
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Reset())
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: s.SetSearch(req.Text, h.suggestLimit)})
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := h.suggestLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSuggestLimit {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "limit must be between 1 and 100", map[string]any{"limit": raw})
			return
		}
		limit = n
	}

	_, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: s.Suggestions(r.URL.Query().Get("q"), limit)})
}
