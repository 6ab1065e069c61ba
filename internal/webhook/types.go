package webhook

import (
	"time"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

// Config holds webhook server configuration.
type Config struct {
	Listen string `yaml:"listen"`

	// Path is the URL path the platform posts events to.
	Path string `yaml:"path"`

	// SignatureHeader carries the base64 HMAC-SHA256 of the body.
	SignatureHeader string `yaml:"signature_header"`

	// Secret is the channel secret used as the HMAC key.
	Secret string `yaml:"-"`

	// SkipSignatureVerification accepts unsigned requests. Local bootstrap only.
	SkipSignatureVerification bool `yaml:"skip_signature_verification"`

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// ProcessTimeout bounds the processing of one delivery batch.
	ProcessTimeout time.Duration `yaml:"process_timeout"`

	// MaxConcurrentEvents limits how many events of one batch run at once.
	MaxConcurrentEvents int `yaml:"max_concurrent_events"`
}

// AckResponse is the JSON response for every verified, well-formed delivery.
type AckResponse struct {
	Status  string        `json:"status"`
	Results []EventResult `json:"results"`
}

// EventResult reports how one event of the batch was handled.
type EventResult struct {
	EventID   string         `json:"event_id,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Outcome   domain.Outcome `json:"outcome"`
	Stage     domain.Stage   `json:"stage,omitempty"`
	URL       string         `json:"url,omitempty"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Response is a transport-neutral reply produced by Server.Process.
type Response struct {
	Status int
	Body   any
}

// Default values
const (
	DefaultPath                = "/webhook"
	DefaultSignatureHeader     = "X-Line-Signature"
	DefaultMaxBodySize         = 1048576 // 1 MB
	DefaultProcessTimeout      = 25 * time.Second
	DefaultMaxConcurrentEvents = 4
)

func newEventResult(r domain.PipelineResult) EventResult {
	return EventResult{
		EventID:   r.EventID,
		MessageID: r.MessageID,
		Outcome:   r.Outcome,
		Stage:     r.Stage,
		URL:       r.URL,
	}
}
