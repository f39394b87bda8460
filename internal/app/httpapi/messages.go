package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	messagesvc "github.com/nexus-partners/admin-backend/internal/app/services/messages"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

func (h *Handler) registerMessages(r *mux.Router) {
	r.HandleFunc("", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.messageStats).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.listMessageTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.createMessageTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/{template_id}", h.updateMessageTemplate).Methods(http.MethodPut)
	r.HandleFunc("/templates/{template_id}", h.deleteMessageTemplate).Methods(http.MethodDelete)
	r.HandleFunc("/{message_id}", h.getMessage).Methods(http.MethodGet)
	r.HandleFunc("/{message_id}", h.updateMessage).Methods(http.MethodPut)
	r.HandleFunc("/{message_id}/reply", h.replyMessage).Methods(http.MethodPost)
	r.HandleFunc("/{message_id}/archive", h.archiveMessage).Methods(http.MethodPost)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Messages.List(r.Context(), storage.MessageFilter{
		Status:     q.Get("status"),
		AssignedTo: q.Get("assigned_to"),
		Category:   q.Get("category"),
		Cursor:     q.Get("cursor"),
		Limit:      queryInt(r, "limit", "0"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) getMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.svc.Messages.Get(r.Context(), mux.Vars(r)["message_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) updateMessage(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req messagesvc.UpdateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	msg, err := h.svc.Messages.Update(r.Context(), op, mux.Vars(r)["message_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) replyMessage(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req messagesvc.ReplyRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	msg, err := h.svc.Messages.Reply(r.Context(), op, mux.Vars(r)["message_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) archiveMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.svc.Messages.Archive(r.Context(), mux.Vars(r)["message_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) messageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Messages.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) createMessageTemplate(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req messagesvc.TemplateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tpl, err := h.svc.Messages.CreateTemplate(r.Context(), op, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) listMessageTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.Messages.ListTemplates(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": templates})
}

func (h *Handler) updateMessageTemplate(w http.ResponseWriter, r *http.Request) {
	var req messagesvc.TemplateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tpl, err := h.svc.Messages.UpdateTemplate(r.Context(), mux.Vars(r)["template_id"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) deleteMessageTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Messages.DeleteTemplate(r.Context(), mux.Vars(r)["template_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
