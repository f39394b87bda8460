package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	campaignsvc "github.com/nexus-partners/admin-backend/internal/app/services/campaigns"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerCampaigns(r *mux.Router) {
	r.HandleFunc("", h.listCampaigns).Methods(http.MethodGet)
	r.HandleFunc("", h.createCampaign).Methods(http.MethodPost)
	r.HandleFunc("/templates", h.listEmailTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.createEmailTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/{template_id}", h.updateEmailTemplate).Methods(http.MethodPut)
	r.HandleFunc("/{campaign_id}", h.getCampaign).Methods(http.MethodGet)
	r.HandleFunc("/{campaign_id}", h.updateCampaign).Methods(http.MethodPut)
	r.HandleFunc("/{campaign_id}", h.deleteCampaign).Methods(http.MethodDelete)
	r.HandleFunc("/{campaign_id}/schedule", h.scheduleCampaign).Methods(http.MethodPost)
	r.HandleFunc("/{campaign_id}/cancel", h.cancelCampaign).Methods(http.MethodPost)
	r.HandleFunc("/{campaign_id}/send", h.sendCampaign).Methods(http.MethodPost)
	r.HandleFunc("/{campaign_id}/stats", h.campaignStats).Methods(http.MethodGet)
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req campaignsvc.CreateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Campaigns.Create(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.svc.Campaigns.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": campaigns})
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Campaigns.Get(r.Context(), mux.Vars(r)["campaign_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) updateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignsvc.CreateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Campaigns.Update(r.Context(), mux.Vars(r)["campaign_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Campaigns.Delete(r.Context(), mux.Vars(r)["campaign_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) scheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ScheduledFor string `json:"scheduled_for"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	at, err := time.Parse(time.RFC3339, payload.ScheduledFor)
	if err != nil {
		httputil.WriteError(w, errors.Validation("scheduled_for must be RFC 3339"))
		return
	}
	c, err := h.svc.Campaigns.Schedule(r.Context(), mux.Vars(r)["campaign_id"], at)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) cancelCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Campaigns.Cancel(r.Context(), mux.Vars(r)["campaign_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) sendCampaign(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Campaigns.Send(r.Context(), op, mux.Vars(r)["campaign_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) campaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Campaigns.Stats(r.Context(), mux.Vars(r)["campaign_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) createEmailTemplate(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req campaignsvc.TemplateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tpl, err := h.svc.Campaigns.CreateEmailTemplate(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) listEmailTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	templates, err := h.svc.Campaigns.ListEmailTemplates(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": templates})
}

func (h *Handler) updateEmailTemplate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		campaignsvc.TemplateRequest
		IsActive *bool `json:"is_active,omitempty"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tpl, err := h.svc.Campaigns.UpdateEmailTemplate(r.Context(), mux.Vars(r)["template_id"], payload.TemplateRequest, payload.IsActive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tpl)
}
