package parseserver

import (
	"errors"
	"strings"

	"pagebot/internal/domain"
)

// Training command grammar: #ask <trigger> #ans <reply1,reply2,...>
const (
	askPrefix   = "#ask "
	ansSentinel = " #ans "
)

var (
	ErrNotTrainingCommand = errors.New("not a training command")
	ErrMissingAnswer      = errors.New("training command missing #ans sentinel")
	ErrEmptyTrigger       = errors.New("training command has an empty trigger")
	ErrEmptyReplies       = errors.New("training command has no replies")
)

// IsTrainingCommand reports whether text looks like a #ask command.
func IsTrainingCommand(text string) bool {
	return strings.HasPrefix(text, strings.TrimRight(askPrefix, " "))
}

// ParseTrainingCommand validates and parses a raw #ask command into a
// TrainingRecord. Malformed input is rejected here, before any request is
// built.
func ParseTrainingCommand(raw string) (domain.TrainingRecord, error) {
	var rec domain.TrainingRecord

	if !strings.HasPrefix(raw, askPrefix) {
		return rec, ErrNotTrainingCommand
	}
	rest := strings.TrimPrefix(raw, askPrefix)

	trigger, replies, ok := strings.Cut(rest, ansSentinel)
	if !ok {
		return rec, ErrMissingAnswer
	}

	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return rec, ErrEmptyTrigger
	}

	var replyList []string
	for _, r := range strings.Split(replies, ",") {
		if r = strings.TrimSpace(r); r != "" {
			replyList = append(replyList, r)
		}
	}
	if len(replyList) == 0 {
		return rec, ErrEmptyReplies
	}

	rec.Msg = trigger
	rec.ReplyMsg = replyList
	return rec, nil
}
