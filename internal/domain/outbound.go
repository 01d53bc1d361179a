package domain

// SenderAction is a non-message action delivered through the Send API.
type SenderAction string

const (
	ActionMarkSeen  SenderAction = "mark_seen"
	ActionTypingOn  SenderAction = "typing_on"
	ActionTypingOff SenderAction = "typing_off"
)

// OutboundMessage is the Send API request body: a recipient plus either a
// message body or a sender action.
type OutboundMessage struct {
	Recipient    Party        `json:"recipient"`
	Message      *MessageBody `json:"message,omitempty"`
	SenderAction SenderAction `json:"sender_action,omitempty"`
}

// MessageBody holds text with optional quick replies, or a single attachment.
type MessageBody struct {
	Text         string              `json:"text,omitempty"`
	Metadata     string              `json:"metadata,omitempty"`
	QuickReplies []QuickReplyOption  `json:"quick_replies,omitempty"`
	Attachment   *OutboundAttachment `json:"attachment,omitempty"`
}

// QuickReplyOption is one tappable option attached to an outbound message.
type QuickReplyOption struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// OutboundAttachment is a media or template attachment.
type OutboundAttachment struct {
	Type    string          `json:"type"` // image, audio, video, file, template
	Payload TemplatePayload `json:"payload"`
}

// TemplatePayload covers media URLs and the template kinds in one struct;
// the Send API keys off TemplateType.
type TemplatePayload struct {
	URL          string `json:"url,omitempty"`
	TemplateType string `json:"template_type,omitempty"` // button, generic, receipt

	// button template
	Text    string   `json:"text,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`

	// generic template
	Elements []Element `json:"elements,omitempty"`

	// receipt template
	RecipientName string       `json:"recipient_name,omitempty"`
	OrderNumber   string       `json:"order_number,omitempty"`
	Currency      string       `json:"currency,omitempty"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	Timestamp     string       `json:"timestamp,omitempty"`
	Address       *Address     `json:"address,omitempty"`
	Summary       *Summary     `json:"summary,omitempty"`
	Adjustments   []Adjustment `json:"adjustments,omitempty"`
}

// Button is a web_url, postback, or phone_number button.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Element is one card of a generic-template carousel, or one line item of a
// receipt (the Send API reuses the field names).
type Element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ItemURL  string   `json:"item_url,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
	Quantity int      `json:"quantity,omitempty"`
	Price    float64  `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

type Address struct {
	Street1    string `json:"street_1"`
	Street2    string `json:"street_2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

type Summary struct {
	Subtotal     float64 `json:"subtotal,omitempty"`
	ShippingCost float64 `json:"shipping_cost,omitempty"`
	TotalTax     float64 `json:"total_tax,omitempty"`
	TotalCost    float64 `json:"total_cost"`
}

type Adjustment struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}
