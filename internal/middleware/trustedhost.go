package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
)

// TrustedHostMiddleware rejects requests whose Host header is not in the
// allowlist. Intended for production behind a proxy that preserves Host.
type TrustedHostMiddleware struct {
	allowed map[string]bool
}

// NewTrustedHostMiddleware creates the host check. An empty allowlist
// disables the check.
func NewTrustedHostMiddleware(hosts []string) *TrustedHostMiddleware {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}
	return &TrustedHostMiddleware{allowed: allowed}
}

// Handler returns the middleware handler.
func (m *TrustedHostMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.allowed) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		host := strings.ToLower(r.Host)
		if h, _, err := net.SplitHostPort(r.Host); err == nil {
			host = strings.ToLower(h)
		}
		if !m.allowed[host] {
			se := errors.Forbidden("host not allowed")
			httputil.WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
