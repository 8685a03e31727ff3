package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// VerifyWebhookSignature checks the `creem-signature` header against an
// HMAC-SHA256 digest of the raw request body. The body must be the exact
// bytes as received, captured before any JSON parse, because a re-serialized
// payload is not guaranteed to byte-match what the provider signed.
// Missing signature, missing secret or non-hex input all fail closed.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// VerifyRedirectSignature validates the signed query parameters Creem
// appends to the post-payment success redirect. The signing payload is the
// parameters (minus the signature itself) sorted by key and joined as
// key=value pairs with "&".
func VerifyRedirectSignature(params map[string]string, signature, webhookSecret string) bool {
	sig := strings.TrimSpace(signature)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	return VerifyWebhookSignature([]byte(strings.Join(pairs, "&")), sig, secret)
}
