package hub

import "sync"

type Writer interface {
	Write(message []byte) error
	Close() error
}

// Subscriber receives every message published on Topic.
type Subscriber struct {
	Topic  string
	Writer Writer
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
}

func New() *Hub {
	return &Hub{subscribers: make(map[string]map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[sub.Topic] == nil {
		h.subscribers[sub.Topic] = make(map[*Subscriber]struct{})
	}
	h.subscribers[sub.Topic][sub] = struct{}{}
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subscribers[sub.Topic]
	if set == nil {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, sub.Topic)
	}
}

func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Publish writes message to every subscriber of topic. Subscribers whose
// writer fails are closed and dropped.
func (h *Hub) Publish(topic string, message []byte) {
	h.mu.RLock()
	set := h.subscribers[topic]
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	var failed []*Subscriber
	for _, s := range subs {
		if err := s.Writer.Write(message); err != nil {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		_ = s.Writer.Close()
		h.Unsubscribe(s)
	}
}

// CloseAll closes and drops every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.subscribers
	h.subscribers = make(map[string]map[*Subscriber]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for s := range set {
			_ = s.Writer.Close()
		}
	}
}
