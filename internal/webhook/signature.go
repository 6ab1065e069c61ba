package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// VerifySignature reports whether signature is the base64-encoded
// HMAC-SHA256 of body under secret.
//
// body must be the request body exactly as received. Re-encoding a parsed
// payload changes the bytes and fails verification.
//
// The comparison is case-sensitive and constant-time. A missing secret or
// signature is always a rejection.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	expected := ComputeSignature(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// ComputeSignature returns the base64-encoded HMAC-SHA256 of body.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier applies the configured signature policy to inbound requests.
type Verifier struct {
	secret string
	skip   bool
}

// NewVerifier returns a Verifier for secret. skip disables verification and
// must only be set through explicit configuration.
func NewVerifier(secret string, skip bool) *Verifier {
	return &Verifier{secret: secret, skip: skip}
}

// Verify checks signature against body, honouring the skip policy.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if v.skip {
		return true
	}
	return VerifySignature(body, signature, v.secret)
}

// Skipping reports whether verification is disabled.
func (v *Verifier) Skipping() bool {
	return v.skip
}
