package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMonerooConfigured(t *testing.T) {
	c := NewMonerooClient("", "", "", "https://admin.example.com", nil)
	if c.Configured() {
		t.Fatalf("client without keys reports configured")
	}
	if _, err := c.CreatePaymentLink(context.Background(), 1000, "XOF", "Premium", "aya@example.com", "Aya", nil); err == nil {
		t.Fatalf("expected error from unconfigured client")
	}

	c = NewMonerooClient("https://api.moneroo.io/", "key", "secret", "https://admin.example.com/", nil)
	if !c.Configured() {
		t.Fatalf("client with keys reports unconfigured")
	}
	if c.baseURL != "https://api.moneroo.io" {
		t.Fatalf("trailing slash kept: %q", c.baseURL)
	}
	if c.returnURL != "https://admin.example.com/payments/success" {
		t.Fatalf("unexpected return url %q", c.returnURL)
	}
}

func TestCreatePaymentLink(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer api-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(PaymentLink{ //nolint:errcheck
			PaymentURL: "https://checkout.moneroo.io/p/abc",
			PaymentID:  "pay_abc",
			Reference:  "ref-1",
		})
	}))
	defer server.Close()

	c := NewMonerooClient(server.URL, "api-key", "secret", "https://admin.example.com", nil)
	link, err := c.CreatePaymentLink(context.Background(), 2500, "XOF", "Gold plan", "aya@example.com", "Aya K", map[string]interface{}{"user_id": "user-1"})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if link.PaymentID != "pay_abc" || link.PaymentURL == "" {
		t.Fatalf("unexpected link %+v", link)
	}
	if captured["amount"].(float64) != 2500 {
		t.Fatalf("unexpected amount %v", captured["amount"])
	}
	customer := captured["customer"].(map[string]interface{})
	if customer["email"] != "aya@example.com" {
		t.Fatalf("unexpected customer %v", customer)
	}
	if captured["return_url"] != "https://admin.example.com/payments/success" {
		t.Fatalf("unexpected return url %v", captured["return_url"])
	}
}

func TestVerifyPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_abc" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(PaymentStatus{ //nolint:errcheck
			Status: "success", Amount: 2500, Currency: "XOF", Reference: "ref-1",
		})
	}))
	defer server.Close()

	c := NewMonerooClient(server.URL, "api-key", "secret", "https://admin.example.com", nil)
	status, err := c.VerifyPayment(context.Background(), "pay_abc")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if status.Status != "success" || status.Amount != 2500 {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := c.VerifyPayment(context.Background(), "pay_missing"); err == nil {
		t.Fatalf("expected error for unknown payment")
	} else if !strings.Contains(err.Error(), "404") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewMonerooClient("https://api.moneroo.io", "key", "webhook-secret", "https://admin.example.com", nil)
	body := []byte(`{"event":"payment.success","data":{"id":"pay_abc"}}`)

	mac := hmac.New(sha256.New, []byte("webhook-secret"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifyWebhookSignature(body, signature) {
		t.Fatalf("valid signature rejected")
	}
	if !c.VerifyWebhookSignature(body, "  "+signature+"\n") {
		t.Fatalf("signature with whitespace rejected")
	}
	if c.VerifyWebhookSignature(body, "deadbeef") {
		t.Fatalf("bogus signature accepted")
	}
	if c.VerifyWebhookSignature([]byte("tampered"), signature) {
		t.Fatalf("tampered body accepted")
	}

	unconfigured := NewMonerooClient("https://api.moneroo.io", "key", "", "https://admin.example.com", nil)
	if unconfigured.VerifyWebhookSignature(body, signature) {
		t.Fatalf("signature accepted without a secret")
	}
}
