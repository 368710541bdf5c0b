package portal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Time allowed to write a message to a subscriber before the send counts as
// failed and the subscriber is removed.
const writeWait = 10 * time.Second

// subscriber is one live connection. There is no identity across reconnects.
// Writes come from two goroutines (the broadcast worker and the snapshot path
// on attach), so they are serialized through writeMu.
type subscriber struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (s *subscriber) send(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *subscriber) sendEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// Hub holds the subscriber registry and runs the broadcast worker. The
// registry mutex is held only to mutate or snapshot the set, never across a
// network send.
type Hub struct {
	logger  *log.Logger
	metrics *metrics

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewHub(logger *log.Logger, m *metrics) *Hub {
	return &Hub{
		logger:      logger,
		metrics:     m,
		subscribers: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) attach(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.clientsActive.Set(float64(count))
	h.logger.Info("client connected", "clients", count)
	return sub
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()

	if !present {
		return
	}
	sub.conn.Close()
	h.metrics.clientsActive.Set(float64(count))
	h.logger.Info("client removed", "clients", count)
}

func (h *Hub) snapshot() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// Count reports the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// closeAll disconnects every subscriber; used during teardown.
func (h *Hub) closeAll() {
	for _, sub := range h.snapshot() {
		h.remove(sub)
	}
}

// broadcast serializes the event once and fans it out to the current
// subscriber snapshot. A failed send removes that subscriber without
// affecting delivery to the rest. With no subscribers it is a no-op pass.
func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", event.Type, "err", err)
		return
	}

	h.metrics.eventsTotal.WithLabelValues(string(event.Type)).Inc()

	for _, sub := range h.snapshot() {
		if err := sub.send(payload); err != nil {
			h.logger.Warn("send to client failed, removing", "type", event.Type, "err", err)
			h.metrics.sendFailures.Inc()
			h.remove(sub)
		}
	}
}

// RunBroadcast is the single bridge consumer. It marks the bridge running,
// then drains it until ctx is cancelled.
func (h *Hub) RunBroadcast(ctx context.Context, bridge *Bridge) {
	bridge.Start()
	defer bridge.Stop()

	for {
		event, ok := bridge.Next(ctx)
		if !ok {
			return
		}
		h.broadcast(event)
	}
}
