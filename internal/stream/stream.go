package stream

import (
	"context"
	"sync"
	"time"
)

// AccessEvent describes a ledger mutation pushed to dashboard subscribers.
type AccessEvent struct {
	Kind      string    `json:"kind"` // record.register | access.grant | access.revoke
	Owner     string    `json:"owner"`
	Grantee   string    `json:"grantee,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs access events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan AccessEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan AccessEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan AccessEvent {
	ch := make(chan AccessEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt AccessEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
