package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	userssvc "github.com/nexus-partners/admin-backend/internal/app/services/users"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerUsers(r *mux.Router) {
	r.HandleFunc("", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/bulk-action", h.bulkUserAction).Methods(http.MethodPost)
	r.HandleFunc("/export/csv", h.exportUsers).Methods(http.MethodGet)
	r.HandleFunc("/{user_id}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/{user_id}", h.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/{user_id}", h.deleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/{user_id}/block", h.blockUser).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/unblock", h.unblockUser).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/tags", h.addUserTag).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/tags/{tag}", h.removeUserTag).Methods(http.MethodDelete)
	r.HandleFunc("/{user_id}/impersonate", h.impersonateUser).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/impersonate/revoke", h.revokeImpersonation).Methods(http.MethodPost)
}

func userFilter(r *http.Request) storage.UserFilter {
	q := r.URL.Query()
	return storage.UserFilter{
		Search:      q.Get("search"),
		Role:        q.Get("role"),
		CountryCode: q.Get("country_code"),
		IsPremium:   queryBool(r, "is_premium"),
		IsBlocked:   queryBool(r, "is_blocked"),
		HasProfile:  queryBool(r, "has_profile"),
		Cursor:      q.Get("cursor"),
		Limit:       queryInt(r, "limit", "0"),
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Users.List(r.Context(), userFilter(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Users.Get(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req userssvc.UpdateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.svc.Users.Update(r.Context(), op, mux.Vars(r)["user_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hard := r.URL.Query().Get("hard_delete") == "true"
	reason := r.URL.Query().Get("reason")
	if err := h.svc.Users.Delete(r.Context(), op, mux.Vars(r)["user_id"], reason, hard); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "deleted",
		"hard_delete": hard,
	})
}

func (h *Handler) blockUser(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.svc.Users.Block(r.Context(), op, mux.Vars(r)["user_id"], payload.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) unblockUser(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.svc.Users.Unblock(r.Context(), op, mux.Vars(r)["user_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) addUserTag(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Tag   string `json:"tag"`
		Color string `json:"color,omitempty"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tag, err := h.svc.Users.AddTag(r.Context(), op, mux.Vars(r)["user_id"], payload.Tag, payload.Color)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tag)
}

func (h *Handler) removeUserTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Users.RemoveTag(r.Context(), vars["user_id"], vars["tag"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) bulkUserAction(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req userssvc.BulkRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	results, err := h.svc.Users.Bulk(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *Handler) exportUsers(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, filename, err := h.svc.Users.Export(r.Context(), op, userFilter(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeCSV(w, filename, data)
}

func (h *Handler) impersonateUser(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.svc.Auth.Impersonate(r.Context(), op, mux.Vars(r)["user_id"], payload.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) revokeImpersonation(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		SessionID string `json:"session_id,omitempty"`
	}
	if err := decodeOptional(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Auth.RevokeImpersonation(r.Context(), op, mux.Vars(r)["user_id"], payload.SessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
