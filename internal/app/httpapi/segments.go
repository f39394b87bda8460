package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	userssvc "github.com/nexus-partners/admin-backend/internal/app/services/users"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerSegments(r *mux.Router) {
	r.HandleFunc("", h.createSegment).Methods(http.MethodPost)
	r.HandleFunc("", h.listSegments).Methods(http.MethodGet)
	r.HandleFunc("/{segment_id}", h.getSegment).Methods(http.MethodGet)
	r.HandleFunc("/{segment_id}", h.updateSegment).Methods(http.MethodPut)
	r.HandleFunc("/{segment_id}", h.deleteSegment).Methods(http.MethodDelete)
	r.HandleFunc("/{segment_id}/members", h.addSegmentMember).Methods(http.MethodPost)
	r.HandleFunc("/{segment_id}/members/{user_id}", h.removeSegmentMember).Methods(http.MethodDelete)
}

func (h *Handler) createSegment(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req userssvc.SegmentRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	segment, err := h.svc.Users.CreateSegment(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, segment)
}

func (h *Handler) listSegments(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	segments, err := h.svc.Users.ListSegments(r.Context(), op)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": segments})
}

func (h *Handler) getSegment(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	segment, members, err := h.svc.Users.GetSegment(r.Context(), op, mux.Vars(r)["segment_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"segment":      segment,
		"member_count": members,
	})
}

func (h *Handler) updateSegment(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req userssvc.SegmentRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	segment, err := h.svc.Users.UpdateSegment(r.Context(), op, mux.Vars(r)["segment_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, segment)
}

func (h *Handler) deleteSegment(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Users.DeleteSegment(r.Context(), op, mux.Vars(r)["segment_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) addSegmentMember(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Users.AddSegmentMember(r.Context(), op, mux.Vars(r)["segment_id"], payload.UserID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) removeSegmentMember(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := h.svc.Users.RemoveSegmentMember(r.Context(), op, vars["segment_id"], vars["user_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
