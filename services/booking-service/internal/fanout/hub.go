package fanout

import (
	"context"
	"sync"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

const defaultBuffer = 32

// Hub broadcasts SlotEvents to in-process subscribers. Nothing is persisted:
// a subscriber only sees events published after it subscribed.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	buffer int
	onDrop func(expertID string)
}

type subscriber struct {
	expertID string
	ch       chan model.SlotEvent
}

type HubOption func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHook is called whenever an event is dropped for a full subscriber.
func WithDropHook(fn func(expertID string)) HubOption {
	return func(h *Hub) { h.onDrop = fn }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: defaultBuffer,
		onDrop: func(string) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers interest in one expert, or in all experts when
// expertID is empty. The returned func unsubscribes and closes the channel;
// calling it more than once is safe.
func (h *Hub) Subscribe(expertID string) (<-chan model.SlotEvent, func()) {
	s := &subscriber{expertID: expertID, ch: make(chan model.SlotEvent, h.buffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			close(s.ch)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every matching subscriber without blocking. The
// mutex is held for the whole delivery so concurrent publishes reach each
// subscriber in a single order.
func (h *Hub) Publish(_ context.Context, ev model.SlotEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if s.expertID != "" && s.expertID != ev.ExpertID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.onDrop(ev.ExpertID)
		}
	}
	return nil
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
