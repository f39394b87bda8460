package totp

import (
	"strings"
	"testing"
	"time"
)

func TestCodeKnownVectors(t *testing.T) {
	// RFC 6238 appendix B vectors, truncated to six digits. The reference
	// secret is "12345678901234567890" in base32.
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Unix(59, 0), "287082"},
		{time.Unix(1111111109, 0), "081804"},
		{time.Unix(1234567890, 0), "005924"},
	}
	for _, tc := range cases {
		got, err := Code(secret, tc.at)
		if err != nil {
			t.Fatalf("code at %v: %v", tc.at, err)
		}
		if got != tc.want {
			t.Fatalf("code at %v: got %s want %s", tc.at, got, tc.want)
		}
	}
}

func TestValidateAcceptsDrift(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	now := time.Unix(1700000000, 0)

	for _, drift := range []time.Duration{0, -Period * time.Second, Period * time.Second} {
		code, err := Code(secret, now.Add(drift))
		if err != nil {
			t.Fatalf("code: %v", err)
		}
		if !Validate(secret, code, now) {
			t.Fatalf("code with drift %v rejected", drift)
		}
	}

	stale, err := Code(secret, now.Add(-2*Period*time.Second))
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if Validate(secret, stale, now) {
		t.Fatalf("code two steps old accepted")
	}
	if Validate(secret, "12345", now) {
		t.Fatalf("short code accepted")
	}
}

func TestProvisioningURI(t *testing.T) {
	uri := ProvisioningURI("ABC234", "ops@example.com", "Example Admin")
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected scheme: %s", uri)
	}
	for _, want := range []string{"secret=ABC234", "issuer=Example+Admin"} {
		if !strings.Contains(uri, want) {
			t.Fatalf("uri %s missing %s", uri, want)
		}
	}
}
