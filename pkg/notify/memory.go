package notify

import (
	"context"
	"sync"
)

// MemorySink records notifications for inspection in tests.
type MemorySink struct {
	mu   sync.Mutex
	sent []*Notification
}

// NewMemorySink creates a recording sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Notify appends the notification to the record.
func (s *MemorySink) Notify(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, n)

	return nil
}

// Sent returns a copy of every notification received so far.
func (s *MemorySink) Sent() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := make([]*Notification, len(s.sent))
	copy(sent, s.sent)

	return sent
}

// OfKind returns the recorded notifications matching a kind.
func (s *MemorySink) OfKind(kind string) []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Notification

	for _, n := range s.sent {
		if n.Kind == kind {
			matched = append(matched, n)
		}
	}

	return matched
}
