package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// PaymentLink is a hosted checkout URL for one payment.
type PaymentLink struct {
	PaymentURL string `json:"payment_url"`
	PaymentID  string `json:"payment_id"`
	Reference  string `json:"reference"`
}

// PaymentStatus is the verified state of a payment.
type PaymentStatus struct {
	Status    string  `json:"status"` // pending, success, failed
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
	PaidAt    string  `json:"paid_at,omitempty"`
}

// MonerooClient speaks to the Moneroo payment API.
type MonerooClient struct {
	baseURL    string
	apiKey     string
	secretKey  string
	returnURL  string
	cancelURL  string
	httpClient *http.Client
	log        *logger.Logger
}

// NewMonerooClient creates a payment client. As with email, missing keys make
// the client report unconfigured rather than failing startup.
func NewMonerooClient(baseURL, apiKey, secretKey, adminDomain string, log *logger.Logger) *MonerooClient {
	if log == nil {
		log = logger.NewDefault("payment")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	domain := strings.TrimRight(strings.TrimSpace(adminDomain), "/")
	return &MonerooClient{
		baseURL:   baseURL,
		apiKey:    strings.TrimSpace(apiKey),
		secretKey: strings.TrimSpace(secretKey),
		returnURL: domain + "/payments/success",
		cancelURL: domain + "/payments/cancel",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Configured reports whether the client can reach the payment API.
func (c *MonerooClient) Configured() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// CreatePaymentLink initializes a hosted payment and returns its link.
func (c *MonerooClient) CreatePaymentLink(ctx context.Context, amount float64, currency, description, customerEmail, customerName string, metadata map[string]interface{}) (PaymentLink, error) {
	if !c.Configured() {
		return PaymentLink{}, fmt.Errorf("payment gateway is not configured")
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	payload := map[string]interface{}{
		"amount":      int(amount),
		"currency":    currency,
		"description": description,
		"customer": map[string]string{
			"email": customerEmail,
			"name":  customerName,
		},
		"metadata":   metadata,
		"return_url": c.returnURL,
		"cancel_url": c.cancelURL,
	}
	var link PaymentLink
	if err := c.post(ctx, "/v1/payments/initialize", payload, &link); err != nil {
		return PaymentLink{}, err
	}
	return link, nil
}

// VerifyPayment fetches the current status of a payment.
func (c *MonerooClient) VerifyPayment(ctx context.Context, paymentID string) (PaymentStatus, error) {
	if !c.Configured() {
		return PaymentStatus{}, fmt.Errorf("payment gateway is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return PaymentStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var status PaymentStatus
	if err := c.do(req, &status); err != nil {
		return PaymentStatus{}, err
	}
	return status, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature over a raw webhook
// body.
func (c *MonerooClient) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.secretKey == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *MonerooClient) post(ctx context.Context, path string, payload, dst interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dst)
}

func (c *MonerooClient) do(req *http.Request, dst interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _, err := httputil.ReadAllWithLimit(resp.Body, 1<<20)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("moneroo error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if dst != nil {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
