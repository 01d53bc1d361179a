// Package webhook serves the inbound platform webhook: subscription
// verification, payload signature checking and envelope ingestion.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the payload signature on inbound POSTs.
const SignatureHeader = "x-hub-signature"

var (
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// Sign computes the header value for a payload, for tests and tooling.
func Sign(appSecret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(appSecret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the sha1=<hex> header against the HMAC of the raw
// body bytes. It must run before JSON parsing; verifying a re-encoded body
// is incorrect.
func VerifySignature(appSecret string, body []byte, header string) error {
	method, digest, ok := strings.Cut(header, "=")
	if !ok || method != "sha1" {
		return ErrMalformedSignature
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return ErrMalformedSignature
	}

	mac := hmac.New(sha1.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), want) {
		return ErrSignatureMismatch
	}
	return nil
}
