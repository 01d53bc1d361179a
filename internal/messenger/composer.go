package messenger

import (
	"math/rand/v2"
	"strconv"

	"pagebot/internal/catalog"
	"pagebot/internal/domain"
)

// QuizPayloadPrefix marks a quick-reply payload as an opaque quiz session
// token rather than a literal answer.
const QuizPayloadPrefix = "quiz:"

const genrePayload = "DEVELOPER_DEFINED_PAYLOAD_FOR_PICKING_"
const demoPostbackPayload = "DEVELOPED_DEFINED_PAYLOAD"

// Composer builds outbound message payloads from the demo catalog. Builders
// are pure; a recipient id is required but checked at send time. Malformed
// kind parameters are a programming error, not a runtime condition.
type Composer struct {
	cat *catalog.Catalog
}

func NewComposer(cat *catalog.Catalog) *Composer {
	return &Composer{cat: cat}
}

// Text builds a plain text message with the default metadata.
func (c *Composer) Text(recipient, text string) domain.OutboundMessage {
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Text:     text,
			Metadata: c.cat.DefaultMetadata,
		},
	}
}

// DemoAttachment builds a media attachment for one of the demo keywords
// (image, gif, audio, video, file). A gif rides on the image attachment type.
func (c *Composer) DemoAttachment(recipient, kind string) domain.OutboundMessage {
	attachType := kind
	if kind == "gif" {
		attachType = "image"
	}
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Attachment: &domain.OutboundAttachment{
				Type:    attachType,
				Payload: domain.TemplatePayload{URL: c.cat.Attachments[kind]},
			},
		},
	}
}

func (c *Composer) demoButtons() []domain.Button {
	return []domain.Button{
		{Type: "web_url", URL: c.cat.DemoURL, Title: "Open Web URL"},
		{Type: "postback", Title: "Trigger Postback", Payload: demoPostbackPayload},
		{Type: "phone_number", Title: "Call Phone Number", Payload: c.cat.PhoneDemo},
	}
}

// ButtonTemplate builds the fixed three-button demo.
func (c *Composer) ButtonTemplate(recipient string) domain.OutboundMessage {
	return c.buttonMessage(recipient, c.cat.ButtonText)
}

// Menu is the button demo under the menu heading.
func (c *Composer) Menu(recipient string) domain.OutboundMessage {
	return c.buttonMessage(recipient, c.cat.MenuText)
}

func (c *Composer) buttonMessage(recipient, text string) domain.OutboundMessage {
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Attachment: &domain.OutboundAttachment{
				Type: "template",
				Payload: domain.TemplatePayload{
					TemplateType: "button",
					Text:         text,
					Buttons:      c.demoButtons(),
				},
			},
		},
	}
}

// GenericTemplate builds the fixed two-card carousel demo.
func (c *Composer) GenericTemplate(recipient string) domain.OutboundMessage {
	riftURL := c.cat.DemoURL
	touchURL := "https://www.oculus.com/en-us/touch/"
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Attachment: &domain.OutboundAttachment{
				Type: "template",
				Payload: domain.TemplatePayload{
					TemplateType: "generic",
					Elements: []domain.Element{
						{
							Title:    "rift",
							Subtitle: "Next-generation virtual reality",
							ItemURL:  riftURL,
							ImageURL: "http://messengerdemo.parseapp.com/img/rift.png",
							Buttons: []domain.Button{
								{Type: "web_url", URL: riftURL, Title: "Open Web URL"},
								{Type: "postback", Title: "Call Postback", Payload: "Payload for first bubble"},
							},
						},
						{
							Title:    "touch",
							Subtitle: "Your Hands, Now in VR",
							ItemURL:  touchURL,
							ImageURL: "http://messengerdemo.parseapp.com/img/touch.png",
							Buttons: []domain.Button{
								{Type: "web_url", URL: touchURL, Title: "Open Web URL"},
								{Type: "postback", Title: "Call Postback", Payload: "Payload for second bubble"},
							},
						},
					},
				},
			},
		},
	}
}

// Receipt builds the fixed demo order. The order number is randomized since
// the API requires a unique id per receipt.
func (c *Composer) Receipt(recipient string) domain.OutboundMessage {
	receiptID := "order" + strconv.Itoa(rand.IntN(1000))
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Attachment: &domain.OutboundAttachment{
				Type: "template",
				Payload: domain.TemplatePayload{
					TemplateType:  "receipt",
					RecipientName: "Peter Chang",
					OrderNumber:   receiptID,
					Currency:      "USD",
					PaymentMethod: "Visa 1234",
					Timestamp:     "1428444852",
					Elements: []domain.Element{
						{
							Title:    "Oculus Rift",
							Subtitle: "Includes: headset, sensor, remote",
							Quantity: 1,
							Price:    599.00,
							Currency: "USD",
							ImageURL: "http://messengerdemo.parseapp.com/img/riftsq.png",
						},
						{
							Title:    "Samsung Gear VR",
							Subtitle: "Frost White",
							Quantity: 1,
							Price:    99.99,
							Currency: "USD",
							ImageURL: "http://messengerdemo.parseapp.com/img/gearvrsq.png",
						},
					},
					Address: &domain.Address{
						Street1:    "1 Hacker Way",
						City:       "Menlo Park",
						PostalCode: "94025",
						State:      "CA",
						Country:    "US",
					},
					Summary: &domain.Summary{
						Subtotal:     698.99,
						ShippingCost: 20.00,
						TotalTax:     57.67,
						TotalCost:    626.66,
					},
					Adjustments: []domain.Adjustment{
						{Name: "New Customer Discount", Amount: -50},
						{Name: "$100 Off Coupon", Amount: -100},
					},
				},
			},
		},
	}
}

// GenreQuickReply builds the fixed genre-picker quick-reply set.
func (c *Composer) GenreQuickReply(recipient string) domain.OutboundMessage {
	options := make([]domain.QuickReplyOption, 0, len(c.cat.GenreOptions))
	for _, genre := range c.cat.GenreOptions {
		options = append(options, domain.QuickReplyOption{
			ContentType: "text",
			Title:       genre,
			Payload:     genrePayload + upperSnake(genre),
		})
	}
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Text:         c.cat.QuickReplyQuestion,
			Metadata:     c.cat.DefaultMetadata,
			QuickReplies: options,
		},
	}
}

// Quiz builds a numbered quick-reply quiz. Every option carries the opaque
// session token; the answer itself never leaves the store.
func (c *Composer) Quiz(recipient, question, token string, optionCount int) domain.OutboundMessage {
	payload := QuizPayloadPrefix + token
	options := make([]domain.QuickReplyOption, 0, optionCount)
	for i := 1; i <= optionCount; i++ {
		options = append(options, domain.QuickReplyOption{
			ContentType: "text",
			Title:       strconv.Itoa(i),
			Payload:     payload,
		})
	}
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Text:         question,
			QuickReplies: options,
		},
	}
}

// Help builds the persona help prompt with its quick-reply options.
func (c *Composer) Help(recipient string) domain.OutboundMessage {
	options := make([]domain.QuickReplyOption, 0, len(c.cat.HelpOptions))
	for _, title := range c.cat.HelpOptions {
		options = append(options, domain.QuickReplyOption{
			ContentType: "text",
			Title:       title,
			Payload:     genrePayload + "ACTION",
		})
	}
	return domain.OutboundMessage{
		Recipient: domain.Party{ID: recipient},
		Message: &domain.MessageBody{
			Text:         c.cat.HelpText,
			Metadata:     c.cat.DefaultMetadata,
			QuickReplies: options,
		},
	}
}

// Action builds a sender action (mark_seen, typing_on, typing_off).
func (c *Composer) Action(recipient string, action domain.SenderAction) domain.OutboundMessage {
	return domain.OutboundMessage{
		Recipient:    domain.Party{ID: recipient},
		SenderAction: action,
	}
}

func upperSnake(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			out = append(out, '_')
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
