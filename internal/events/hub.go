// Package events fans task lifecycle transitions and queue statistics out to
// subscribers over persistent connections. Delivery is best-effort and
// at-most-once: a write failure drops the connection, nothing is replayed.
package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// StatsTopic receives an aggregate queue snapshot on every transition.
const StatsTopic = "queue:stats"

func TaskTopic(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}

func JobTopic(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// Conn is one persistent client connection. The websocket handler adapts
// *websocket.Conn to this; tests use doubles.
type Conn interface {
	ID() string
	WriteJSON(v any) error
}

// Hub is the topic-based publish/subscribe broadcaster.
type Hub struct {
	logger *zap.Logger

	mu     sync.RWMutex
	topics map[string]map[string]Conn     // topic -> conn id -> conn
	conns  map[string]map[string]struct{} // conn id -> subscribed topics
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		topics: make(map[string]map[string]Conn),
		conns:  make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Subscribe(conn Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]Conn)
	}
	h.topics[topic][conn.ID()] = conn

	if h.conns[conn.ID()] == nil {
		h.conns[conn.ID()] = make(map[string]struct{})
	}
	h.conns[conn.ID()][topic] = struct{}{}
}

func (h *Hub) Unsubscribe(conn Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn.ID(), topic)
}

// CloseConn tears down every subscription of a closed connection.
func (h *Hub) CloseConn(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.conns[conn.ID()] {
		h.removeLocked(conn.ID(), topic)
	}
}

func (h *Hub) removeLocked(connID, topic string) {
	if subs := h.topics[topic]; subs != nil {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if topics := h.conns[connID]; topics != nil {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(h.conns, connID)
		}
	}
}

// Publish sends payload to every subscriber of topic. A failed write drops
// the connection from all topics; it never propagates to the publisher.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.RLock()
	subs := make([]Conn, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, conn := range subs {
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Debug("event delivery failed, dropping connection",
				zap.String("conn_id", conn.ID()),
				zap.String("topic", topic),
				zap.Error(err))
			h.CloseConn(conn)
		}
	}
}

// SubscriberCount reports how many connections listen on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
