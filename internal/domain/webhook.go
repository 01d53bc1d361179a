package domain

import "errors"

// ErrAmbiguousEvent marks a messaging event that carries more than one
// variant payload. The platform never sends these; treat as malformed.
var ErrAmbiguousEvent = errors.New("messaging event carries multiple variant payloads")

// InboundEnvelope is the top-level webhook payload posted by the platform.
type InboundEnvelope struct {
	Object string  `json:"object"` // "page" for Messenger subscriptions
	Entry  []Entry `json:"entry"`
}

// Entry is one page's batch of events. Messaging and Changes may coexist
// structurally but in practice at most one is populated.
type Entry struct {
	ID        string           `json:"id"`   // page ID
	Time      int64            `json:"time"` // Unix milliseconds
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []ChangeEvent    `json:"changes,omitempty"`
}

// MessagingEvent is a tagged union: exactly one of Optin, Message, Delivery,
// Postback, Read is meaningful per event. Use Kind to classify.
type MessagingEvent struct {
	Sender    Party `json:"sender"`
	Recipient Party `json:"recipient"`
	Timestamp int64 `json:"timestamp"`

	Optin    *Optin    `json:"optin,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Delivery *Delivery `json:"delivery,omitempty"`
	Postback *Postback `json:"postback,omitempty"`
	Read     *Read     `json:"read,omitempty"`
}

// EventKind identifies the variant carried by a MessagingEvent.
type EventKind string

const (
	KindUnknown  EventKind = "unknown"
	KindOptin    EventKind = "optin"
	KindMessage  EventKind = "message"
	KindDelivery EventKind = "delivery"
	KindPostback EventKind = "postback"
	KindRead     EventKind = "read"
)

// Kind classifies the event. Zero populated variants is the defined
// "unknown event" case; more than one is malformed and returns
// ErrAmbiguousEvent.
func (e *MessagingEvent) Kind() (EventKind, error) {
	kind := KindUnknown
	n := 0
	if e.Optin != nil {
		kind, n = KindOptin, n+1
	}
	if e.Message != nil {
		kind, n = KindMessage, n+1
	}
	if e.Delivery != nil {
		kind, n = KindDelivery, n+1
	}
	if e.Postback != nil {
		kind, n = KindPostback, n+1
	}
	if e.Read != nil {
		kind, n = KindRead, n+1
	}
	if n > 1 {
		return KindUnknown, ErrAmbiguousEvent
	}
	return kind, nil
}

// Party is a sender or recipient, identified by a page-scoped ID.
type Party struct {
	ID string `json:"id"`
}

// Optin is the authentication event from the "Send to Messenger" plugin.
type Optin struct {
	Ref string `json:"ref"`
}

// Message is the payload of a message event.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	AppID       int64        `json:"app_id,omitempty"`
	Metadata    string       `json:"metadata,omitempty"`
}

// QuickReply is the option a user tapped on a quick-reply message.
type QuickReply struct {
	ContentType string `json:"content_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Payload     string `json:"payload"`
}

// Attachment is an inbound media attachment.
type Attachment struct {
	Type    string            `json:"type"` // image, video, audio, file
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url,omitempty"`
}

// Delivery confirms delivery of messages up to Watermark.
type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq,omitempty"`
}

// Postback carries the developer-defined payload of a tapped button.
type Postback struct {
	Payload string `json:"payload"`
}

// Read confirms that messages up to Watermark were seen.
type Read struct {
	Watermark int64 `json:"watermark"`
	Seq       int64 `json:"seq,omitempty"`
}

// ChangeEvent is a comment-stream notification on a subscribed page.
type ChangeEvent struct {
	Field string      `json:"field,omitempty"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	Item       string `json:"item,omitempty"` // "comment" for comment notifications
	CommentID  string `json:"comment_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Message    string `json:"message,omitempty"`
}
