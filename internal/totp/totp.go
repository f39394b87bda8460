// Package totp implements RFC 6238 time-based one-time passwords with the
// parameters authenticator apps expect: SHA-1, 6 digits, 30 second steps.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// Period is the time step in seconds.
	Period = 30
	// Digits is the code length.
	Digits = 6
	// secretBytes is the raw entropy behind a generated secret.
	secretBytes = 20
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new random base32 secret.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return encoding.EncodeToString(raw), nil
}

// Code computes the code for a secret at the given time.
func Code(secret string, at time.Time) (string, error) {
	key, err := encoding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	counter := uint64(at.Unix() / Period)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1000000), nil
}

// Validate checks a submitted code against the secret, accepting one step of
// clock drift in either direction.
func Validate(secret, submitted string, at time.Time) bool {
	submitted = strings.TrimSpace(submitted)
	if len(submitted) != Digits {
		return false
	}
	for _, drift := range []int{0, -1, 1} {
		expected, err := Code(secret, at.Add(time.Duration(drift)*Period*time.Second))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1 {
			return true
		}
	}
	return false
}

// ProvisioningURI renders the otpauth:// URI encoding the secret for
// authenticator apps.
func ProvisioningURI(secret, accountName, issuer string) string {
	label := url.PathEscape(issuer + ":" + accountName)
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", fmt.Sprintf("%d", Digits))
	params.Set("period", fmt.Sprintf("%d", Period))
	return "otpauth://totp/" + label + "?" + params.Encode()
}
