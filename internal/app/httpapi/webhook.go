package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	subscriptionsvc "github.com/nexus-partners/admin-backend/internal/app/services/subscriptions"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

const maxWebhookBody = 1 << 20

// paymentOperator attributes webhook-driven grants in history and audit rows.
var paymentOperator = admin.Profile{
	UserID:   "payment-webhook",
	Email:    "payments@internal",
	FullName: "Payment gateway",
	Role:     "admin",
}

// monerooWebhook applies confirmed payments to the paying user's
// subscription. The signature covers the raw body, so it is read before any
// JSON parsing.
func (h *Handler) monerooWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadAllStrict(r.Body, maxWebhookBody)
	if err != nil {
		httputil.WriteError(w, errors.Validation("unreadable webhook body"))
		return
	}
	signature := r.Header.Get("X-Moneroo-Signature")
	if !h.svc.Payments.VerifyWebhookSignature(body, signature) {
		httputil.WriteError(w, errors.Unauthorized("invalid webhook signature"))
		return
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			ID       string  `json:"id"`
			Status   string  `json:"status"`
			Amount   float64 `json:"amount"`
			Metadata struct {
				UserID   string `json:"user_id"`
				PlanCode string `json:"plan_code"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, errors.Validation("invalid webhook payload"))
		return
	}

	log := h.log.WithFields(map[string]interface{}{
		"event":      event.Event,
		"payment_id": event.Data.ID,
	})

	if event.Event != "payment.success" && event.Data.Status != "success" {
		log.Info("webhook ignored")
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	if event.Data.Metadata.UserID == "" || event.Data.Metadata.PlanCode == "" {
		log.Warn("payment webhook missing user or plan metadata")
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	_, err = h.svc.Subscriptions.Grant(r.Context(), paymentOperator, event.Data.Metadata.UserID, subscriptionsvc.GrantRequest{
		PlanCode: event.Data.Metadata.PlanCode,
		Amount:   event.Data.Amount,
		Reason:   "payment " + event.Data.ID,
	})
	if err != nil {
		log.WithError(err).Error("payment webhook grant failed")
		httputil.WriteError(w, err)
		return
	}
	log.Info("payment applied")
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
