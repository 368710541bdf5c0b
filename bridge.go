package portal

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Bridge is the hand-off point between hardware producer goroutines and the
// broadcast worker. Submit never blocks the calling producer: events are
// appended to a mutex-guarded queue and the consumer is woken through a
// buffered signal channel. Once accepted, events reach the consumer in
// submission order with no loss. Events submitted before the consumer starts
// are dropped with a warning; there is no pre-start buffering.
type Bridge struct {
	logger  *log.Logger
	onDrop  func()
	mu      sync.Mutex
	queue   []Event
	running bool
	wake    chan struct{}
}

func NewBridge(logger *log.Logger) *Bridge {
	return &Bridge{
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// SetDropHook registers a callback fired for every event dropped before the
// consumer is running. Used for instrumentation.
func (b *Bridge) SetDropHook(hook func()) {
	b.mu.Lock()
	b.onDrop = hook
	b.mu.Unlock()
}

// Start marks the consumer as running. Called by the broadcast worker before
// its first take.
func (b *Bridge) Start() {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
}

// Stop marks the consumer as gone; later submissions are dropped again.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}

// Submit hands an event over from any goroutine. Safe for concurrent use,
// never blocks.
func (b *Bridge) Submit(event Event) {
	b.mu.Lock()
	if !b.running {
		onDrop := b.onDrop
		b.mu.Unlock()
		b.logger.Warn("event bridge not running, dropping event", "type", event.Type)
		if onDrop != nil {
			onDrop()
		}
		return
	}
	b.queue = append(b.queue, event)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available or ctx is done. The second return
// is false only on cancellation.
func (b *Bridge) Next(ctx context.Context) (Event, bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			event := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return event, true
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-b.wake:
		}
	}
}

// Pending reports the number of queued events.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
