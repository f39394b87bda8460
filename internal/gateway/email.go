// Package gateway holds thin clients for the external delivery providers:
// SendGrid for email and Moneroo for payments. Both speak JSON over HTTPS
// with bearer auth and are deliberately minimal.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// EmailSender delivers transactional and campaign email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SendGridClient sends mail through the SendGrid v3 API.
type SendGridClient struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	log        *logger.Logger
}

// NewSendGridClient creates a SendGrid client. An empty API key yields a
// client whose sends fail with a clear error, keeping startup tolerant in
// environments without email.
func NewSendGridClient(apiKey, fromEmail, fromName string, log *logger.Logger) *SendGridClient {
	if log == nil {
		log = logger.NewDefault("email")
	}
	return &SendGridClient{
		apiKey:    strings.TrimSpace(apiKey),
		fromEmail: strings.TrimSpace(fromEmail),
		fromName:  strings.TrimSpace(fromName),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// Configured reports whether the client can actually send.
func (c *SendGridClient) Configured() bool {
	return c.apiKey != "" && c.fromEmail != ""
}

// Send delivers a single HTML email.
func (c *SendGridClient) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email gateway is not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("recipient is required")
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": to}}},
		},
		"from": map[string]string{
			"email": c.fromEmail,
			"name":  c.fromName,
		},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": htmlBody},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _, _ := httputil.ReadAllWithLimit(resp.Body, 32<<10)
		return fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	c.log.WithField("to", to).Debug("email sent")
	return nil
}
