package memory

import (
	"context"
	"sync"

	audit "petchain/pkg/platform/audit"
)

// DefaultCapacity bounds the store when no capacity is given.
const DefaultCapacity = 10_000

// InMemoryStore keeps the most recent audit events in a ring buffer. Once
// full, each append drops the oldest event.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	start  int
	size   int
}

// Option configures the store.
type Option func(*InMemoryStore)

// WithCapacity sets how many events are retained. Non-positive values keep
// DefaultCapacity.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.events = make([]audit.Event, n)
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{events: make([]audit.Event, DefaultCapacity)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the maximum number of retained events.
func (s *InMemoryStore) Capacity() int {
	return len(s.events)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.events)
	s.start, s.size = 0, 0
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size < len(s.events) {
		s.events[(s.start+s.size)%len(s.events)] = event
		s.size++
		return nil
	}
	s.events[s.start] = event
	s.start = (s.start + 1) % len(s.events)
	return nil
}

// at returns the i-th retained event, oldest first. Callers hold mu.
func (s *InMemoryStore) at(i int) audit.Event {
	return s.events[(s.start+i)%len(s.events)]
}

// ListAll returns every retained event, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Event, 0, s.size)
	for i := 0; i < s.size; i++ {
		out = append(out, s.at(i))
	}
	return out, nil
}

// ListRecent returns up to limit retained events, most recent first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]audit.Event, 0, limit)
	for i := s.size - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.at(i))
	}
	return out, nil
}

// ListByFingerprint returns the retained events recorded for one transaction.
func (s *InMemoryStore) ListByFingerprint(_ context.Context, fingerprint string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for i := 0; i < s.size; i++ {
		if e := s.at(i); e.Fingerprint == fingerprint {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ audit.Store = (*InMemoryStore)(nil)
