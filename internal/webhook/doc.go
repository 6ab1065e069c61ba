// Package webhook implements the inbound endpoint for chat platform events.
//
// Every delivery is authenticated with an HMAC-SHA256 signature over the raw
// request body, keyed by the channel secret and carried base64-encoded in the
// X-Line-Signature header. Verification happens before the body is parsed.
//
// # Security Model
//
// - Signatures are compared with crypto/subtle (constant-time comparison)
// - Body size limits are enforced before verification
// - No signature details leak in error responses (always generic 403)
// - Request logging excludes payloads
// - Verification can only be disabled through explicit configuration
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path
//  2. Body size checked (reject with 413 if too large)
//  3. Signature verified over the raw bytes (reject with 403 on mismatch)
//  4. Body decoded as an event envelope (reject with 400 if malformed)
//  5. Events routed concurrently, bounded by max_concurrent_events
//  6. 200 OK returned with one result per event
//
// Per-event failures do not change the status code: the platform does not
// benefit from retrying a batch whose reply tokens may already be spent.
//
// # Error Responses
//
// - 400 Bad Request: verified body is not a valid envelope
// - 403 Forbidden: invalid or missing signature (no details)
// - 405 Method Not Allowed: anything other than POST on the webhook path
// - 413 Payload Too Large: body exceeds max_body_size
package webhook
