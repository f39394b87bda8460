package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/internal/middleware"
)

func (h *Handler) registerAuth(r *mux.Router) {
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/verify-2fa", h.verify2FA).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	r.HandleFunc("/setup-2fa", h.setup2FA).Methods(http.MethodPost)
	r.HandleFunc("/me", h.me).Methods(http.MethodGet)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.svc.Auth.Login(r.Context(), payload.Email, payload.Password, requestIP(r), r.UserAgent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) verify2FA(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.svc.Auth.VerifyTOTP(r.Context(), middleware.GetAdminID(r.Context()), payload.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if payload.RefreshToken == "" {
		httputil.WriteError(w, errors.Validation("refresh_token is required"))
		return
	}
	session, err := h.svc.Auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.Auth.Logout(ctx, middleware.GetAccessToken(ctx), middleware.GetAdminID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) setup2FA(w http.ResponseWriter, r *http.Request) {
	secret, uri, err := h.svc.Auth.Setup2FA(r.Context(), middleware.GetAdminID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"secret":           secret,
		"provisioning_uri": uri,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Auth.Me(r.Context(), middleware.GetAdminID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
