package websocket

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/model"
)

// Hub fans registration events out to live-feed subscribers in process.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan StudentCreatedEvent]struct{}
	buffer int
	log    zerolog.Logger
}

// NewHub creates a Hub whose subscribers buffer up to buffer events.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[chan StudentCreatedEvent]struct{}),
		buffer: buffer,
		log:    log.With().Str("component", "ws_hub").Logger(),
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan StudentCreatedEvent, func()) {
	ch := make(chan StudentCreatedEvent, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// PublishStudentCreated delivers s to every subscriber with room in its buffer.
func (h *Hub) PublishStudentCreated(s model.Student) {
	event := StudentCreatedEvent{Event: EventStudentCreated, Student: s}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.log.Warn().Int64("student_id", s.ID).Msg("Dropping event for slow subscriber")
		}
	}
}

// Subscribers reports the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
