package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data []*domain.Event
	keys map[domain.EventKey]bool
}

// NewTransferStore creates a new in-memory transfer index.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make([]*domain.Event, 0),
		keys: make(map[domain.EventKey]bool),
	}
}

// InsertBulk adds transfer events, silently skipping duplicates.
func (s *TransferStore) InsertBulk(_ context.Context, transfers []*domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range transfers {
		if e == nil {
			return storage.ErrInvalidInput
		}
		key := e.Key()
		if s.keys[key] {
			continue
		}
		s.data = append(s.data, e.Clone())
		s.keys[key] = true
	}
	return nil
}

// OutgoingInWindow retrieves transfers out of from with timestamp in
// (afterTS, untilTS] and amount >= minAmount, ordered ASC.
func (s *TransferStore) OutgoingInWindow(_ context.Context, from string, afterTS, untilTS int64, minAmount *big.Int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.FromAddr != from {
			continue
		}
		if e.Timestamp <= afterTS || e.Timestamp > untilTS {
			continue
		}
		if minAmount != nil && (e.Amount == nil || e.Amount.Cmp(minAmount) < 0) {
			continue
		}
		result = append(result, e.Clone())
	}
	sortEvents(result)
	return result, nil
}

// LatestTimestamp returns the newest indexed transfer timestamp.
func (s *TransferStore) LatestTimestamp(_ context.Context) (int64, error) {
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

// Verify interface compliance at compile time.
var _ storage.TransferStore = (*TransferStore)(nil)
