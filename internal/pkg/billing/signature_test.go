package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test_123"
	payload := []byte(`{"id":"evt_1","eventType":"checkout.completed"}`)
	valid := signHex(secret, payload)

	if !VerifyWebhookSignature(payload, valid, secret) {
		t.Fatal("expected valid signature to verify")
	}
	if !VerifyWebhookSignature(payload, strings.ToUpper(valid), secret) {
		t.Fatal("expected uppercase hex signature to verify")
	}
	if !VerifyWebhookSignature(payload, "  "+valid+"  ", secret) {
		t.Fatal("expected surrounding whitespace to be tolerated")
	}
}

func TestVerifyWebhookSignatureFailsClosed(t *testing.T) {
	secret := "whsec_test_123"
	payload := []byte(`{"id":"evt_1"}`)
	valid := signHex(secret, payload)

	cases := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
	}{
		{"empty signature", payload, "", secret},
		{"empty secret", payload, valid, ""},
		{"non-hex signature", payload, "not-hex!", secret},
		{"wrong secret", payload, signHex("other", payload), secret},
		{"tampered payload", []byte(`{"id":"evt_2"}`), valid, secret},
		{"truncated signature", payload, valid[:32], secret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyWebhookSignature(tc.payload, tc.signature, tc.secret) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}

func TestVerifyRedirectSignature(t *testing.T) {
	secret := "whsec_test_123"
	params := map[string]string{
		"checkout_id": "ch_1",
		"order_id":    "ord_9",
		"customer_id": "cust_5",
	}
	// Keys sorted, joined as key=value with "&".
	signed := "checkout_id=ch_1&customer_id=cust_5&order_id=ord_9"
	sig := signHex(secret, []byte(signed))

	if !VerifyRedirectSignature(params, sig, secret) {
		t.Fatal("expected redirect signature to verify")
	}

	// The signature param itself must not be part of the signing payload.
	params["signature"] = sig
	if !VerifyRedirectSignature(params, sig, secret) {
		t.Fatal("expected signature param to be excluded from payload")
	}

	params["order_id"] = "ord_10"
	if VerifyRedirectSignature(params, sig, secret) {
		t.Fatal("expected changed param to invalidate the signature")
	}
}
