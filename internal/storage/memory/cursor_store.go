package memory

import (
	"context"
	"sync"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[int64]*domain.ScanCursor
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[int64]*domain.ScanCursor)}
}

// Get retrieves the cursor for a chain.
func (s *CursorStore) Get(_ context.Context, chainID int64) (*domain.ScanCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[chainID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneCursor(c), nil
}

// Save upserts the cursor.
func (s *CursorStore) Save(_ context.Context, c *domain.ScanCursor) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[c.ChainID] = cloneCursor(c)
	return nil
}

func cloneCursor(c *domain.ScanCursor) *domain.ScanCursor {
	cp := *c
	cp.Gaps = make([]domain.ScanGap, len(c.Gaps))
	copy(cp.Gaps, c.Gaps)
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.CursorStore = (*CursorStore)(nil)
