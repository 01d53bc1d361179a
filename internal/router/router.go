// Package router turns classified webhook events into outbound replies. It
// holds the message routing state machine and the dispatch worker pool.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pagebot/internal/catalog"
	"pagebot/internal/domain"
	"pagebot/internal/messenger"
	"pagebot/internal/metrics"
	"pagebot/internal/parseserver"
)

// Router maps one inbound event to zero or more outbound sends. Send
// failures are logged and absorbed here; they never propagate upward.
type Router struct {
	sender   domain.Sender
	replies  domain.ReplyService
	quiz     domain.QuizStore
	composer *messenger.Composer
	cat      *catalog.Catalog

	quizOptions int
	logger      *slog.Logger
}

type Config struct {
	Sender       domain.Sender
	ReplyService domain.ReplyService
	QuizStore    domain.QuizStore
	Composer     *messenger.Composer
	Catalog      *catalog.Catalog
	QuizOptions  int
	Logger       *slog.Logger
}

func New(cfg Config) *Router {
	if cfg.QuizOptions <= 0 {
		cfg.QuizOptions = 4
	}
	return &Router{
		sender:      cfg.Sender,
		replies:     cfg.ReplyService,
		quiz:        cfg.QuizStore,
		composer:    cfg.Composer,
		cat:         cfg.Catalog,
		quizOptions: cfg.QuizOptions,
		logger:      cfg.Logger,
	}
}

// Handle processes one scheduled page event.
func (r *Router) Handle(ctx context.Context, evt domain.PageEvent) {
	kind, err := evt.Event.Kind()
	if err != nil {
		// Malformed events are filtered at ingestion; a second helping here
		// keeps the worker safe against direct callers.
		metrics.EventsMalformed.Inc()
		r.logger.Warn("dropping malformed event", "page", evt.PageID, "err", err)
		return
	}
	metrics.EventCounter(string(kind)).Inc()

	sender := evt.Event.Sender.ID
	switch kind {
	case domain.KindOptin:
		r.logger.Info("optin received", "sender", sender, "ref", evt.Event.Optin.Ref)
		r.send(ctx, r.composer.Text(sender, r.cat.AuthAck))
	case domain.KindMessage:
		r.handleMessage(ctx, sender, evt.Event.Message)
	case domain.KindDelivery:
		r.logger.Info("delivery confirmed",
			"sender", sender,
			"mids", evt.Event.Delivery.MIDs,
			"watermark", evt.Event.Delivery.Watermark)
	case domain.KindPostback:
		r.logger.Info("postback received", "sender", sender, "payload", evt.Event.Postback.Payload)
		r.send(ctx, r.composer.Text(sender, r.cat.PostbackAck))
	case domain.KindRead:
		r.logger.Info("messages read",
			"sender", sender,
			"watermark", evt.Event.Read.Watermark,
			"seq", evt.Event.Read.Seq)
	default:
		r.logger.Info("unknown event, ignoring", "sender", sender)
	}
}

// handleMessage is the routing state machine over one message payload.
// Precedence: echo, quick reply, text keyword, text default, attachments.
func (r *Router) handleMessage(ctx context.Context, sender string, msg *domain.Message) {
	if msg.IsEcho {
		r.logger.Info("echo observed",
			"app_id", msg.AppID, "metadata", msg.Metadata, "mid", msg.MID)
		return
	}

	if msg.QuickReply != nil {
		r.handleQuickReply(ctx, sender, msg)
		return
	}

	if msg.Text != "" {
		r.routeText(ctx, sender, msg.Text)
		return
	}

	if len(msg.Attachments) > 0 {
		r.send(ctx, r.composer.Text(sender, r.cat.AttachmentAck))
		return
	}

	// Neither text, quick reply nor attachments. Deliberately silent.
	r.logger.Info("empty message, ignoring", "sender", sender, "mid", msg.MID)
}

// handleQuickReply scores a tapped quick-reply option. Quiz options carry an
// opaque session token; the canonical answer lives in the store. Any other
// payload keeps the historical behavior of comparing the visible text to the
// payload itself.
func (r *Router) handleQuickReply(ctx context.Context, sender string, msg *domain.Message) {
	payload := msg.QuickReply.Payload

	if token, ok := strings.CutPrefix(payload, messenger.QuizPayloadPrefix); ok {
		sess, err := r.quiz.Lookup(ctx, token)
		if err != nil {
			r.logger.Error("quiz session lookup failed", "err", err)
			return
		}
		if sess == nil {
			r.send(ctx, r.composer.Text(sender, r.cat.QuizExpired))
			return
		}
		r.send(ctx, r.composer.Text(sender, r.cat.AnswerAck(msg.Text)))
		if msg.Text == sess.Answer {
			r.send(ctx, r.composer.Text(sender, r.cat.AnswerCorrect))
		} else {
			r.send(ctx, r.composer.Text(sender, r.cat.AnswerWrong))
		}
		return
	}

	r.send(ctx, r.composer.Text(sender, r.cat.AnswerAck(payload)))
	if msg.Text == payload {
		r.send(ctx, r.composer.Text(sender, r.cat.AnswerCorrect))
	} else {
		r.send(ctx, r.composer.Text(sender, r.cat.AnswerWrong))
	}
}

// routeText matches the text against the demo keyword table, exact and
// case-sensitive, then falls through to commands and the reply service.
func (r *Router) routeText(ctx context.Context, sender, text string) {
	switch text {
	case "image", "gif", "audio", "video", "file":
		r.send(ctx, r.composer.DemoAttachment(sender, text))
	case "button":
		r.send(ctx, r.composer.ButtonTemplate(sender))
	case "generic":
		r.send(ctx, r.composer.GenericTemplate(sender))
	case "receipt":
		r.send(ctx, r.composer.Receipt(sender))
	case "quick reply":
		r.send(ctx, r.composer.GenreQuickReply(sender))
	case "read receipt":
		r.send(ctx, r.composer.Action(sender, domain.ActionMarkSeen))
	case "typing on":
		r.send(ctx, r.composer.Action(sender, domain.ActionTypingOn))
	case "typing off":
		r.send(ctx, r.composer.Action(sender, domain.ActionTypingOff))
	case "test":
		reply, err := r.replies.TestMessage(ctx, text)
		if err != nil {
			r.logger.Error("test message failed", "err", err)
			return
		}
		r.send(ctx, r.composer.Text(sender, reply))
	case "#help":
		r.send(ctx, r.composer.Help(sender))
	case "#menu":
		r.send(ctx, r.composer.Menu(sender))
	case "#quiz":
		r.startQuiz(ctx, sender)
	default:
		r.routeDefault(ctx, sender, text)
	}
}

// startQuiz issues a fresh quiz session and sends the numbered options.
func (r *Router) startQuiz(ctx context.Context, sender string) {
	token, err := r.quiz.Create(ctx, sender, r.cat.QuizAnswer)
	if err != nil {
		r.logger.Error("cannot create quiz session", "err", err)
		return
	}
	r.send(ctx, r.composer.Quiz(sender, r.cat.QuizQuestion, token, r.quizOptions))
}

// routeDefault handles text that matched no keyword: training commands, bot
// commands, then the trained-reply lookup.
func (r *Router) routeDefault(ctx context.Context, sender, text string) {
	if parseserver.IsTrainingCommand(text) && r.handleTraining(ctx, sender, text) {
		return
	}
	if strings.HasPrefix(text, "#bot") {
		r.send(ctx, r.composer.Text(sender, r.cat.BotCommandAck))
		return
	}

	reply, err := r.replies.GetReply(ctx, text)
	if err != nil {
		r.logger.Error("reply lookup failed", "err", err)
		return
	}
	if reply == "" {
		r.send(ctx, r.composer.Text(sender, r.cat.NotUnderstood))
		return
	}
	r.send(ctx, r.composer.Text(sender, reply))
}

// handleTraining validates and relays a training command. Malformed commands
// are rejected before any request is built. False means the text is not a
// training command at all (e.g. "#asking") and should fall through to the
// reply lookup.
func (r *Router) handleTraining(ctx context.Context, sender, text string) bool {
	rec, err := parseserver.ParseTrainingCommand(text)
	if errors.Is(err, parseserver.ErrNotTrainingCommand) {
		return false
	}
	if err != nil {
		metrics.TrainingRejected.Inc()
		r.logger.Warn("rejecting malformed training command", "err", err)
		r.send(ctx, r.composer.Text(sender, r.cat.TrainingFailed))
		return true
	}

	if _, err := r.replies.Train(ctx, rec); err != nil {
		metrics.TrainingRejected.Inc()
		r.logger.Error("training relay failed", "trigger", rec.Msg, "err", err)
		r.send(ctx, r.composer.Text(sender, r.cat.TrainingFailed))
		return true
	}
	metrics.TrainingAccepted.Inc()
	r.send(ctx, r.composer.Text(sender, r.cat.TrainingOK))
	return true
}

// send delivers one message and absorbs the failure. Outbound delivery is
// fire-and-forget from the router's point of view.
func (r *Router) send(ctx context.Context, msg domain.OutboundMessage) {
	if err := r.sender.Send(ctx, msg); err != nil {
		r.logger.Error("send failed", "recipient", msg.Recipient.ID, "err", err)
	}
}
