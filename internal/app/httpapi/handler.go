package httpapi

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	analyticssvc "github.com/nexus-partners/admin-backend/internal/app/services/analytics"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	authsvc "github.com/nexus-partners/admin-backend/internal/app/services/auth"
	campaignsvc "github.com/nexus-partners/admin-backend/internal/app/services/campaigns"
	messagesvc "github.com/nexus-partners/admin-backend/internal/app/services/messages"
	moderationsvc "github.com/nexus-partners/admin-backend/internal/app/services/moderation"
	settingssvc "github.com/nexus-partners/admin-backend/internal/app/services/settings"
	subscriptionsvc "github.com/nexus-partners/admin-backend/internal/app/services/subscriptions"
	userssvc "github.com/nexus-partners/admin-backend/internal/app/services/users"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/internal/middleware"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// APIPrefix is the versioned base path for every authenticated route.
const APIPrefix = "/api/admin/v1"

// Services bundles the domain services the handler dispatches to.
type Services struct {
	Auth          *authsvc.Service
	Users         *userssvc.Service
	Subscriptions *subscriptionsvc.Service
	Moderation    *moderationsvc.Service
	Messages      *messagesvc.Service
	Campaigns     *campaignsvc.Service
	Analytics     *analyticssvc.Service
	Audit         *auditsvc.Service
	Settings      *settingssvc.Service

	// Payments is consulted only by the webhook endpoint; nil disables it.
	Payments *gateway.MonerooClient
}

// Handler exposes the admin REST API.
type Handler struct {
	svc         Services
	version     string
	environment string
	log         *logger.Logger
}

// NewHandler builds the API handler. Version and environment are echoed by
// the health endpoint.
func NewHandler(svc Services, version, environment string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{svc: svc, version: version, environment: environment, log: log}
}

// Register attaches every route to the router. Middleware is expected to be
// installed on the router by the caller; routes here only dispatch.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("", h.root).Methods(http.MethodGet)
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	h.registerAuth(api.PathPrefix("/auth").Subrouter())
	h.registerUsers(api.PathPrefix("/users").Subrouter())
	h.registerSegments(api.PathPrefix("/segments").Subrouter())
	h.registerSubscriptions(api.PathPrefix("/subscriptions").Subrouter())
	h.registerModeration(api.PathPrefix("/moderation").Subrouter())
	h.registerEntrepreneurs(api.PathPrefix("/entrepreneurs").Subrouter())
	h.registerMessages(api.PathPrefix("/messages").Subrouter())
	h.registerCampaigns(api.PathPrefix("/campaigns").Subrouter())
	h.registerAnalytics(api.PathPrefix("/analytics").Subrouter())
	h.registerAudit(api.PathPrefix("/audit").Subrouter())
	h.registerSettings(api.PathPrefix("/settings").Subrouter())
	h.registerNotifications(api.PathPrefix("/notifications").Subrouter())

	if h.svc.Payments != nil {
		api.HandleFunc("/webhooks/moneroo", h.monerooWebhook).Methods(http.MethodPost)
	}
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "admin-backend",
		"version": h.version,
		"docs":    APIPrefix,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"version":     h.version,
		"environment": h.environment,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// operator returns the admin profile stored by the RBAC middleware.
func operator(r *http.Request) (admin.Profile, error) {
	profile, ok := middleware.GetAdminProfile(r.Context())
	if !ok {
		return admin.Profile{}, errors.Unauthorized("authentication required")
	}
	return profile, nil
}

// decodeOptional decodes a request body that may legitimately be empty.
func decodeOptional(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httputil.DecodeJSON(r.Body, dst)
}

func writeCSV(w http.ResponseWriter, filename, data string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, data) //nolint:errcheck
}

func queryInt(r *http.Request, name, fallback string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		raw = fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// queryBool returns nil when the parameter is absent, so filters can
// distinguish "unset" from false.
func queryBool(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v := raw == "true" || raw == "1"
	return &v
}

func queryList(r *http.Request, name string) []string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// queryTime accepts RFC 3339 or a bare date.
func queryTime(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
