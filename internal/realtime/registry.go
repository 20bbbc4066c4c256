package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-insights-server/internal/infrastructure/logger"
	"chat-insights-server/internal/infrastructure/metrics"
)

// Handle is a registered delivery endpoint for one subscriber.
type Handle interface {
	Send(data []byte) error
}

// Registry fans events out to every handle subscribed to a conversation.
// All methods are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string][]Handle
	log         zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[string][]Handle),
		log:         logger.Component("realtime.registry"),
	}
}

// Subscribe registers h for the conversation. Registering the same handle
// twice is a no-op.
func (r *Registry) Subscribe(conversationID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subscribers[conversationID] {
		if existing == h {
			return
		}
	}
	r.subscribers[conversationID] = append(r.subscribers[conversationID], h)
	metrics.WebsocketConnections.Inc()
}

// Unsubscribe removes h from the conversation. Unknown handles and unknown
// conversations are ignored. The conversation entry is dropped once its
// last handle leaves.
func (r *Registry) Unsubscribe(conversationID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles, ok := r.subscribers[conversationID]
	if !ok {
		return
	}
	for i, existing := range handles {
		if existing == h {
			r.subscribers[conversationID] = append(handles[:i], handles[i+1:]...)
			metrics.WebsocketConnections.Dec()
			break
		}
	}
	if len(r.subscribers[conversationID]) == 0 {
		delete(r.subscribers, conversationID)
	}
}

// SubscriberCount reports how many handles are registered for a conversation.
func (r *Registry) SubscriberCount(conversationID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[conversationID])
}

// Broadcast serializes the event once and delivers it to every handle
// subscribed to the conversation, in registration order. Send failures are
// logged and counted but never interrupt delivery to the remaining handles.
// It returns the number of successful deliveries.
func (r *Registry) Broadcast(conversationID string, event Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).
			Str("conversation_id", conversationID).
			Str("event_type", string(event.EventType())).
			Msg("failed to encode event")
		return 0
	}

	r.mu.RLock()
	handles := make([]Handle, len(r.subscribers[conversationID]))
	copy(handles, r.subscribers[conversationID])
	r.mu.RUnlock()

	metrics.BroadcastsTotal.Inc()

	delivered := 0
	for _, h := range handles {
		if err := h.Send(data); err != nil {
			metrics.BroadcastSendFailuresTotal.Inc()
			r.log.Warn().Err(err).
				Str("conversation_id", conversationID).
				Str("event_type", string(event.EventType())).
				Msg("failed to deliver event to subscriber")
			continue
		}
		delivered++
	}
	return delivered
}
