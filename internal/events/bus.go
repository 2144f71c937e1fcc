package events

import (
	"sync"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

// Bus is the in-process event bus the core publishes decision records and
// risk alerts to. Subscribers receive on buffered channels; a slow subscriber
// drops events instead of blocking the publisher.
// ⭐ SSOT: 코어 이벤트 발행은 여기서만
type Bus struct {
	logger *logger.Logger

	mu     sync.RWMutex
	subs   []chan contracts.Event
	closed bool
}

// NewBus creates a new event bus
func NewBus(log *logger.Logger) *Bus {
	return &Bus{logger: log}
}

// Publish delivers an event to every subscriber without blocking
func (b *Bus) Publish(event contracts.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.logger.WithFields(map[string]interface{}{
				"type": event.Type,
			}).Warn("Event dropped, subscriber buffer full")
		}
	}
}

// Subscribe registers a new subscriber channel with the given buffer size
func (b *Bus) Subscribe(buffer int) <-chan contracts.Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan contracts.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Close shuts the bus down and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
