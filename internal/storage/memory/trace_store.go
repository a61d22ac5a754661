package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// TraceStore is an in-memory implementation of storage.TraceStore.
type TraceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FlowTrace
}

// NewTraceStore creates a new in-memory trace store.
func NewTraceStore() *TraceStore {
	return &TraceStore{data: make(map[string]*domain.FlowTrace)}
}

// Insert adds a new trace. Returns ErrDuplicateKey if trace_id exists.
func (s *TraceStore) Insert(_ context.Context, t *domain.FlowTrace) error {
	if t == nil || t.TraceID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[t.TraceID]; ok {
		return storage.ErrDuplicateKey
	}
	s.data[t.TraceID] = t.Clone()
	return nil
}

// GetByID retrieves a trace by its ID.
func (s *TraceStore) GetByID(_ context.Context, traceID string) (*domain.FlowTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[traceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t.Clone(), nil
}

// GetByRole retrieves all traces with a terminal role.
func (s *TraceStore) GetByRole(_ context.Context, role domain.Role) ([]*domain.FlowTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FlowTrace
	for _, t := range s.data {
		if t.Role == role {
			result = append(result, t.Clone())
		}
	}
	sortTraces(result)
	return result, nil
}

// GetAll retrieves every trace.
func (s *TraceStore) GetAll(_ context.Context) ([]*domain.FlowTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FlowTrace, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, t.Clone())
	}
	sortTraces(result)
	return result, nil
}

// sortTraces sorts by (exit timestamp, trace id) for deterministic output.
func sortTraces(traces []*domain.FlowTrace) {
	sort.Slice(traces, func(i, j int) bool {
		if traces[i].ExitTS != traces[j].ExitTS {
			return traces[i].ExitTS < traces[j].ExitTS
		}
		return traces[i].TraceID < traces[j].TraceID
	})
}

// Verify interface compliance at compile time.
var _ storage.TraceStore = (*TraceStore)(nil)
