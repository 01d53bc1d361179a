package bus

import (
	"log/slog"
	"sync"
	"time"

	"pagebot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based event bus. The webhook handler publishes
// classified events here so the inbound request can be acknowledged without
// waiting on outbound sends.
type InMemoryBus struct {
	events chan domain.PageEvent
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// New creates a new InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		events: make(chan domain.PageEvent, bufferSize),
		logger: logger,
	}
}

// Publish schedules an event for processing. Blocks up to 10 seconds if the
// bus is full instead of dropping.
func (b *InMemoryBus) Publish(evt domain.PageEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.events <- evt:
	default:
		b.logger.Warn("event bus full, waiting...", "page", evt.PageID, "sender", evt.Event.Sender.ID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.events <- evt:
			b.logger.Info("event scheduled after wait", "page", evt.PageID)
		case <-timer.C:
			b.logger.Error("event dropped: bus full for 10s",
				"page", evt.PageID,
				"sender", evt.Event.Sender.ID,
			)
		}
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.PageEvent {
	return b.events
}

// Depth reports how many events are waiting.
func (b *InMemoryBus) Depth() int {
	return len(b.events)
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.events)
	}
}
