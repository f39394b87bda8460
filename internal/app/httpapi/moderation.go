package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	moderationsvc "github.com/nexus-partners/admin-backend/internal/app/services/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerModeration(r *mux.Router) {
	r.HandleFunc("/queue", h.moderationQueue).Methods(http.MethodGet)
	r.HandleFunc("/queue/{queue_id}", h.getQueueItem).Methods(http.MethodGet)
	r.HandleFunc("/queue/{queue_id}/assign", h.assignQueueItem).Methods(http.MethodPost)
	r.HandleFunc("/queue/{queue_id}/status", h.setQueueStatus).Methods(http.MethodPost)
	r.HandleFunc("/queue/{queue_id}/decide", h.decideQueueItem).Methods(http.MethodPost)
	r.HandleFunc("/macros", h.listMacros).Methods(http.MethodGet)
	r.HandleFunc("/macros", h.createMacro).Methods(http.MethodPost)
	r.HandleFunc("/macros/{macro_id}", h.updateMacro).Methods(http.MethodPut)
	r.HandleFunc("/macros/{macro_id}", h.deleteMacro).Methods(http.MethodDelete)
	r.HandleFunc("/stats", h.moderationStats).Methods(http.MethodGet)
}

func (h *Handler) registerEntrepreneurs(r *mux.Router) {
	r.HandleFunc("/{entrepreneur_id}", h.getEntrepreneur).Methods(http.MethodGet)
	r.HandleFunc("/{entrepreneur_id}/moderate", h.moderateEntrepreneur).Methods(http.MethodPost)
}

func (h *Handler) moderationQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Moderation.Queue(r.Context(), storage.ModerationFilter{
		Status:     q.Get("status"),
		AssignedTo: q.Get("assigned_to"),
		Cursor:     q.Get("cursor"),
		Limit:      queryInt(r, "limit", "0"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) getQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Moderation.Get(r.Context(), mux.Vars(r)["queue_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) assignQueueItem(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		AssigneeID string `json:"assignee_id,omitempty"`
	}
	if err := decodeOptional(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.svc.Moderation.Assign(r.Context(), op, mux.Vars(r)["queue_id"], payload.AssigneeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) setQueueStatus(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Status string `json:"status"`
		Notes  string `json:"notes,omitempty"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.svc.Moderation.SetStatus(r.Context(), op, mux.Vars(r)["queue_id"], payload.Status, payload.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) decideQueueItem(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req moderationsvc.DecisionRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.svc.Moderation.Decide(r.Context(), op, mux.Vars(r)["queue_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) getEntrepreneur(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Moderation.GetEntrepreneur(r.Context(), mux.Vars(r)["entrepreneur_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) moderateEntrepreneur(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req moderationsvc.DecisionRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.svc.Moderation.DecideEntrepreneur(r.Context(), op, mux.Vars(r)["entrepreneur_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) createMacro(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req moderationsvc.MacroRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	macro, err := h.svc.Moderation.CreateMacro(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, macro)
}

func (h *Handler) listMacros(w http.ResponseWriter, r *http.Request) {
	macros, err := h.svc.Moderation.ListMacros(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": macros})
}

func (h *Handler) updateMacro(w http.ResponseWriter, r *http.Request) {
	var req moderationsvc.MacroRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	macro, err := h.svc.Moderation.UpdateMacro(r.Context(), mux.Vars(r)["macro_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, macro)
}

func (h *Handler) deleteMacro(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Moderation.DeleteMacro(r.Context(), mux.Vars(r)["macro_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) moderationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Moderation.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
