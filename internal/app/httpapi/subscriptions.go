package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	subscriptionsvc "github.com/nexus-partners/admin-backend/internal/app/services/subscriptions"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerSubscriptions(r *mux.Router) {
	r.HandleFunc("/plans", h.listPlans).Methods(http.MethodGet)
	r.HandleFunc("/plans", h.createPlan).Methods(http.MethodPost)
	r.HandleFunc("/plans/{code}", h.updatePlan).Methods(http.MethodPut)
	r.HandleFunc("/coupons", h.listCoupons).Methods(http.MethodGet)
	r.HandleFunc("/coupons", h.createCoupon).Methods(http.MethodPost)
	r.HandleFunc("/coupons/{code}/deactivate", h.deactivateCoupon).Methods(http.MethodPost)
	r.HandleFunc("/expiring-soon", h.expiringSoon).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.subscriptionStats).Methods(http.MethodGet)
	r.HandleFunc("/history/{user_id}", h.subscriptionHistory).Methods(http.MethodGet)
	r.HandleFunc("/payments/{payment_id}/verify", h.verifyPayment).Methods(http.MethodGet)
	r.HandleFunc("/{user_id}/grant", h.grantPremium).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/revoke", h.revokePremium).Methods(http.MethodPost)
	r.HandleFunc("/{user_id}/payment-link", h.createPaymentLink).Methods(http.MethodPost)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	plans, err := h.svc.Subscriptions.ListPlans(r.Context(), includeInactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": plans})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var plan subscription.Plan
	if err := httputil.DecodeJSON(r.Body, &plan); err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := h.svc.Subscriptions.CreatePlan(r.Context(), plan)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	var patch subscription.Plan
	if err := httputil.DecodeJSON(r.Body, &patch); err != nil {
		httputil.WriteError(w, err)
		return
	}
	updated, err := h.svc.Subscriptions.UpdatePlan(r.Context(), mux.Vars(r)["code"], patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") != "false"
	coupons, err := h.svc.Subscriptions.ListCoupons(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": coupons})
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req subscriptionsvc.CouponRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	coupon, err := h.svc.Subscriptions.CreateCoupon(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, coupon)
}

func (h *Handler) deactivateCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.svc.Subscriptions.DeactivateCoupon(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, coupon)
}

func (h *Handler) grantPremium(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req subscriptionsvc.GrantRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.svc.Subscriptions.Grant(r.Context(), op, mux.Vars(r)["user_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) revokePremium(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := decodeOptional(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.svc.Subscriptions.Revoke(r.Context(), op, mux.Vars(r)["user_id"], payload.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) subscriptionHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Subscriptions.History(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

func (h *Handler) expiringSoon(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Subscriptions.ExpiringSoon(r.Context(), queryInt(r, "days", "7"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": profiles})
}

func (h *Handler) subscriptionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Subscriptions.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) createPaymentLink(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req subscriptionsvc.PaymentLinkRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	link, err := h.svc.Subscriptions.CreatePaymentLink(r.Context(), op, mux.Vars(r)["user_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Subscriptions.VerifyPayment(r.Context(), mux.Vars(r)["payment_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
