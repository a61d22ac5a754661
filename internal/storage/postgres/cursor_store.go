package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get retrieves the cursor for a chain.
func (s *CursorStore) Get(ctx context.Context, chainID int64) (*domain.ScanCursor, error) {
	query := `
		SELECT chain_id, last_scanned_block, gaps
		FROM scan_cursors
		WHERE chain_id = $1
	`

	var (
		c       domain.ScanCursor
		gapsRaw []byte
	)
	err := s.pool.QueryRow(ctx, query, chainID).Scan(&c.ChainID, &c.LastScannedBlock, &gapsRaw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scan cursor: %w", err)
	}

	if len(gapsRaw) > 0 {
		if err := json.Unmarshal(gapsRaw, &c.Gaps); err != nil {
			return nil, fmt.Errorf("decode cursor gaps: %w", err)
		}
	}
	return &c, nil
}

// Save upserts the cursor.
func (s *CursorStore) Save(ctx context.Context, c *domain.ScanCursor) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	gaps, err := json.Marshal(c.Gaps)
	if err != nil {
		return fmt.Errorf("encode cursor gaps: %w", err)
	}

	query := `
		INSERT INTO scan_cursors (chain_id, last_scanned_block, gaps)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id) DO UPDATE
		SET last_scanned_block = EXCLUDED.last_scanned_block,
		    gaps = EXCLUDED.gaps
	`

	if _, err := s.pool.Exec(ctx, query, c.ChainID, c.LastScannedBlock, gaps); err != nil {
		return fmt.Errorf("save scan cursor: %w", err)
	}
	return nil
}
