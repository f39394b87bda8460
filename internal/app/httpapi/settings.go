package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerSettings(r *mux.Router) {
	r.HandleFunc("", h.listSettings).Methods(http.MethodGet)
	r.HandleFunc("/health/check", h.dependencyHealth).Methods(http.MethodGet)
	r.HandleFunc("/maintenance/toggle", h.toggleMaintenance).Methods(http.MethodPost)
	r.HandleFunc("/backup/trigger", h.triggerBackup).Methods(http.MethodPost)
	r.HandleFunc("/bulk-update", h.bulkUpdateSettings).Methods(http.MethodPut)
	r.HandleFunc("/{setting_key}", h.getSetting).Methods(http.MethodGet)
	r.HandleFunc("/{setting_key}", h.updateSetting).Methods(http.MethodPut)
}

func (h *Handler) registerNotifications(r *mux.Router) {
	r.HandleFunc("", h.listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/{notification_id}/read", h.markNotificationRead).Methods(http.MethodPost)
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Settings.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": groups})
}

func (h *Handler) getSetting(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings.Get(r.Context(), mux.Vars(r)["setting_key"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) updateSetting(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Value interface{} `json:"value"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	s, err := h.svc.Settings.Update(r.Context(), op, mux.Vars(r)["setting_key"], payload.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) bulkUpdateSettings(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Settings map[string]interface{} `json:"settings"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	results := h.svc.Settings.BulkUpdate(r.Context(), op, payload.Settings)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *Handler) toggleMaintenance(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	enabled, err := h.svc.Settings.ToggleMaintenance(r.Context(), op)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"maintenance_mode": enabled})
}

func (h *Handler) dependencyHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.svc.Settings.HealthCheck(r.Context()))
}

func (h *Handler) triggerBackup(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Reason         string `json:"reason,omitempty"`
		IncludeStorage bool   `json:"include_storage,omitempty"`
	}
	if err := decodeOptional(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.svc.Settings.TriggerBackup(r.Context(), op, payload.Reason, payload.IncludeStorage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, req)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	notifications, err := h.svc.Settings.Notifications(r.Context(), op, unreadOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": notifications})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Settings.MarkNotificationRead(r.Context(), op, mux.Vars(r)["notification_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
