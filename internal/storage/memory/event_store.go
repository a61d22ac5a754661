package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data []*domain.Event
	keys map[domain.EventKey]bool
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make([]*domain.Event, 0),
		keys: make(map[domain.EventKey]bool),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if the key exists.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Key()
	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	s.data = append(s.data, e.Clone())
	s.keys[key] = true
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates (both existing and intra-batch)
	batchKeys := make(map[domain.EventKey]bool)
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		key := e.Key()
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, e := range events {
		s.data = append(s.data, e.Clone())
		s.keys[e.Key()] = true
	}
	return nil
}

// GetByTimeRange retrieves events within [start, end), ordered ASC.
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.Timestamp >= start && e.Timestamp < end {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

// GetByKind retrieves all events of one kind, ordered ASC.
func (s *EventStore) GetByKind(_ context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.Kind == kind {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

// GetExits retrieves all exit events, ordered ASC.
func (s *EventStore) GetExits(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.IsExit() {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

// GetAll retrieves every event, ordered ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, e.Clone())
	}
	sortEvents(result)
	return result, nil
}

// LatestTimestamp returns the newest stored event timestamp.
func (s *EventStore) LatestTimestamp(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return 0, storage.ErrNotFound
	}
	latest := s.data[0].Timestamp
	for _, e := range s.data[1:] {
		if e.Timestamp > latest {
			latest = e.Timestamp
		}
	}
	return latest, nil
}

// sortEvents sorts events by (timestamp, block_number, log_index).
func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
