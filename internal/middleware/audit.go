package middleware

import (
	"net/http"
	"strings"
	"time"

	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Routes never recorded: health probes, metrics scrapes and audit log reads,
// which would only generate noise about reading the log itself.
var skipAuditRoutes = []string{
	"/health",
	"/metrics",
	"/favicon.ico",
}

// AuditMiddleware records every state-changing or failed request in the
// audit log after the response is written.
type AuditMiddleware struct {
	audits    *auditsvc.Service
	apiPrefix string
	log       *logger.Logger
}

// NewAuditMiddleware creates the request audit middleware.
func NewAuditMiddleware(audits *auditsvc.Service, apiPrefix string, log *logger.Logger) *AuditMiddleware {
	if log == nil {
		log = logger.NewDefault("audit-middleware")
	}
	return &AuditMiddleware{audits: audits, apiPrefix: strings.TrimRight(apiPrefix, "/"), log: log}
}

// Handler returns the middleware handler.
func (m *AuditMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		// Successful reads are not worth a log row; writes and failures are.
		if rec.status < 400 && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
			return
		}

		entry := auditdomain.Entry{
			EventType:  auditdomain.EventTypeFor(r.Method, strings.TrimPrefix(r.URL.Path, m.apiPrefix), rec.status),
			AdminID:    GetAdminID(r.Context()),
			IPAddress:  clientIP(r),
			UserAgent:  r.UserAgent(),
			Endpoint:   r.URL.Path,
			HTTPMethod: r.Method,
			StatusCode: rec.status,
			Metadata: map[string]interface{}{
				"duration_ms": duration.Milliseconds(),
			},
		}
		if q := r.URL.RawQuery; q != "" {
			entry.Metadata["query"] = q
		}
		m.audits.Record(r.Context(), entry)
	})
}

func (m *AuditMiddleware) skip(r *http.Request) bool {
	path := strings.TrimRight(r.URL.Path, "/")
	if path == "" || path == m.apiPrefix {
		return true
	}
	for _, route := range skipAuditRoutes {
		if strings.HasSuffix(path, route) {
			return true
		}
	}
	// Audit log reads audit themselves through the export path only.
	if r.Method == http.MethodGet && strings.HasPrefix(path, m.apiPrefix+"/audit") {
		return true
	}
	return false
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
