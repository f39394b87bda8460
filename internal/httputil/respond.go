// Package httputil provides request/response helpers shared by the HTTP API
// and middleware.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nexus-partners/admin-backend/internal/errors"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto its HTTP status and writes a JSON error body.
func WriteError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("Unexpected error", err)
	}
	WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// WriteErrorResponse writes a structured JSON error body.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	if len(details) > 0 {
		body["error"].(map[string]interface{})["details"] = details
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Unauthorized writes a 401 response with an optional message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	WriteErrorResponse(w, http.StatusUnauthorized, string(errors.CodeUnauthorized), message, nil)
}

// DecodeJSON decodes a bounded request body into dst, rejecting unknown
// fields.
func DecodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// ReadAllWithLimit reads at most limit bytes and reports whether the body was
// truncated.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// ReadAllStrict reads at most limit bytes and errors if the body exceeds it.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	data, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return data, nil
}
