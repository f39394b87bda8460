package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/internal/middleware"
)

func (h *Handler) registerAudit(r *mux.Router) {
	r.HandleFunc("/logs", h.listAuditLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs/{log_id}", h.getAuditLog).Methods(http.MethodGet)
	r.HandleFunc("/export", h.exportAuditLogs).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.auditStats).Methods(http.MethodGet)
	r.HandleFunc("/event-types", h.auditEventTypes).Methods(http.MethodGet)
}

func auditFilter(r *http.Request) storage.AuditFilter {
	q := r.URL.Query()
	return storage.AuditFilter{
		Severities: queryList(r, "severity"),
		EventTypes: queryList(r, "event_type"),
		Actor:      q.Get("admin_id"),
		Search:     q.Get("search"),
		StartDate:  queryTime(r, "start_date"),
		EndDate:    queryTime(r, "end_date"),
		Cursor:     q.Get("cursor"),
		Limit:      queryInt(r, "limit", "0"),
	}
}

func (h *Handler) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Audit.List(r.Context(), auditFilter(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) getAuditLog(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Audit.Get(r.Context(), mux.Vars(r)["log_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) exportAuditLogs(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.svc.Audit.Export(r.Context(), auditFilter(r), middleware.GetAdminID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeCSV(w, filename, data)
}

func (h *Handler) auditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Audit.Stats(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) auditEventTypes(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": h.svc.Audit.EventTypes()})
}
