package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerAnalytics(r *mux.Router) {
	r.HandleFunc("/dashboard", h.analyticsDashboard).Methods(http.MethodGet)
	r.HandleFunc("/users/growth", h.userGrowth).Methods(http.MethodGet)
	r.HandleFunc("/users/geo", h.userGeography).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/revenue", h.revenue).Methods(http.MethodGet)
	r.HandleFunc("/content/stats", h.contentStats).Methods(http.MethodGet)
	r.HandleFunc("/overview", h.analyticsOverview).Methods(http.MethodGet)
	r.HandleFunc("/export", h.exportAnalytics).Methods(http.MethodPost)
}

func (h *Handler) analyticsDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Analytics.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (h *Handler) userGrowth(w http.ResponseWriter, r *http.Request) {
	points, err := h.svc.Analytics.UserGrowth(r.Context(), queryInt(r, "days", "30"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": points})
}

func (h *Handler) userGeography(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Analytics.Geography(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	points, err := h.svc.Analytics.Revenue(r.Context(), queryInt(r, "months", "6"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": points})
}

func (h *Handler) contentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Analytics.ContentStats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) analyticsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Analytics.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

func (h *Handler) exportAnalytics(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Dataset string `json:"dataset"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, filename, err := h.svc.Analytics.Export(r.Context(), op, payload.Dataset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeCSV(w, filename, data)
}
