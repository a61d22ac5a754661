package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/postgres"
)

func TestCursorStore_SaveGetUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCursorStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, 42161)
	require.ErrorIs(t, err, storage.ErrNotFound)

	first := &domain.ScanCursor{ChainID: 42161, LastScannedBlock: 100}
	require.NoError(t, store.Save(ctx, first))

	second := &domain.ScanCursor{
		ChainID:          42161,
		LastScannedBlock: 250,
		Gaps: []domain.ScanGap{
			{Range: domain.BlockRange{From: 120, To: 140}, Reason: "range too large"},
		},
	}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, 42161)
	require.NoError(t, err)
	require.Equal(t, int64(250), got.LastScannedBlock)
	require.Len(t, got.Gaps, 1)
	require.Equal(t, "range too large", got.Gaps[0].Reason)
	require.Equal(t, int64(120), got.Gaps[0].Range.From)
}

func TestCursorStore_ChainsIsolated(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCursorStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.ScanCursor{ChainID: 1, LastScannedBlock: 10}))
	require.NoError(t, store.Save(ctx, &domain.ScanCursor{ChainID: 42161, LastScannedBlock: 99}))

	a, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), a.LastScannedBlock)

	b, err := store.Get(ctx, 42161)
	require.NoError(t, err)
	require.Equal(t, int64(99), b.LastScannedBlock)
}
