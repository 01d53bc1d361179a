package domain

import (
	"context"
	"time"
)

// PageEvent is the unit of work scheduled on the event bus: one messaging
// event together with its entry context.
type PageEvent struct {
	PageID   string
	Time     time.Time
	Event    MessagingEvent
	Received time.Time
}

// EventBus decouples the webhook acknowledgment path from event processing.
type EventBus interface {
	Publish(evt PageEvent)
	Subscribe() <-chan PageEvent
	Close()
}

// Sender delivers outbound messages through the platform Send API.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// ReplyService is the external reply-generation/training backend.
type ReplyService interface {
	// GetReply looks up a trained reply for msg. An empty string means the
	// backend has no answer.
	GetReply(ctx context.Context, msg string) (string, error)
	// TestMessage exercises the backend's echo method.
	TestMessage(ctx context.Context, msg string) (string, error)
	// Train stores a trigger phrase with its acceptable replies.
	Train(ctx context.Context, rec TrainingRecord) (string, error)
}

// TrainingRecord maps a trigger phrase to its acceptable replies. The field
// names follow the backend's cloud-function contract.
type TrainingRecord struct {
	Msg      string   `json:"msg"`
	ReplyMsg []string `json:"replyMsg"`
}

// QuizSession stores the canonical answer for one issued quiz, keyed by the
// opaque token carried in the quick-reply payload.
type QuizSession struct {
	Token       string
	RecipientID string
	Answer      string
	CreatedAt   time.Time
}

// QuizStore persists quiz sessions between the quiz message and the answer.
type QuizStore interface {
	Create(ctx context.Context, recipientID, answer string) (token string, err error)
	// Lookup returns nil without error when the token is unknown or expired.
	Lookup(ctx context.Context, token string) (*QuizSession, error)
}
