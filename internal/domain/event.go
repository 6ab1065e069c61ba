// Package domain holds the transient types that flow through one webhook
// request: the inbound event, the media blob, the transformed asset and the
// stored reference.
package domain

// EventKind is the closed set of event shapes the relay understands.
type EventKind int

const (
	// KindUnsupported covers every (type, subtype) pair the relay does not handle.
	KindUnsupported EventKind = iota
	// KindImageMessage is a "message" event whose message type is "image".
	KindImageMessage
)

func (k EventKind) String() string {
	switch k {
	case KindImageMessage:
		return "message/image"
	default:
		return "unsupported"
	}
}

// Platform event and message type names.
const (
	EventTypeMessage   = "message"
	MessageTypeImage   = "image"
	SourceTypeUser     = "user"
	DefaultImageFormat = "jpg"
)

// Envelope is the top-level JSON body delivered to the webhook.
type Envelope struct {
	Destination string         `json:"destination"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is a single platform event. It exists only for the duration of
// the request that delivered it.
type InboundEvent struct {
	Type            string          `json:"type"`
	Mode            string          `json:"mode,omitempty"`
	Timestamp       int64           `json:"timestamp,omitempty"`
	WebhookEventID  string          `json:"webhookEventId,omitempty"`
	DeliveryContext DeliveryContext `json:"deliveryContext"`
	Message         *EventMessage   `json:"message,omitempty"`
	Source          EventSource     `json:"source"`
	ReplyToken      string          `json:"replyToken,omitempty"`
}

// EventMessage is the message body of a "message" event.
type EventMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// EventSource identifies who sent the event.
type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

// DeliveryContext carries platform delivery metadata.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Kind classifies the event. An image message missing its content id or reply
// token cannot be processed and is reported as unsupported.
func (e InboundEvent) Kind() EventKind {
	if e.Type != EventTypeMessage || e.Message == nil {
		return KindUnsupported
	}
	switch e.Message.Type {
	case MessageTypeImage:
		if e.Message.ID == "" || e.ReplyToken == "" {
			return KindUnsupported
		}
		return KindImageMessage
	default:
		return KindUnsupported
	}
}

// MessageID returns the content reference, or "" when the event has no message.
func (e InboundEvent) MessageID() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.ID
}

// LogID returns the best identifier available for log correlation.
func (e InboundEvent) LogID() string {
	if e.WebhookEventID != "" {
		return e.WebhookEventID
	}
	return e.MessageID()
}
