package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware handles cross-origin requests from the admin frontend.
type CORSMiddleware struct {
	allowedOrigins []string
	allowAll       bool
}

// NewCORSMiddleware creates a CORS middleware for the given origin allowlist.
// A "*" entry allows every origin.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	return &CORSMiddleware{allowedOrigins: allowedOrigins, allowAll: allowAll}
}

// Handler returns the CORS middleware handler.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && (m.allowAll || m.isOriginAllowed(origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trace-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Trace-ID, Content-Disposition, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed matches exactly, or by host when the allowlist entry has
// no scheme. A suffix match would let foo-admin.example.com impersonate
// admin.example.com, so hosts compare whole, not as substrings.
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	originHost := origin
	if i := strings.Index(originHost, "://"); i >= 0 {
		originHost = originHost[i+3:]
	}
	for _, allowed := range m.allowedOrigins {
		if allowed == origin {
			return true
		}
		if !strings.Contains(allowed, "://") && allowed == originHost {
			return true
		}
	}
	return false
}
