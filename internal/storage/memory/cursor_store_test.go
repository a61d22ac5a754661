package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

func TestCursorStore_GetUnknownChain(t *testing.T) {
	store := NewCursorStore()
	if _, err := store.Get(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestCursorStore_SaveIsUpsert(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	first := &domain.ScanCursor{ChainID: 1, LastScannedBlock: 100}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := &domain.ScanCursor{
		ChainID:          1,
		LastScannedBlock: 200,
		Gaps: []domain.ScanGap{
			{Range: domain.BlockRange{From: 150, To: 160}, Reason: "provider limit"},
		},
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastScannedBlock != 200 {
		t.Errorf("LastScannedBlock = %d, want 200", got.LastScannedBlock)
	}
	if len(got.Gaps) != 1 || got.Gaps[0].Reason != "provider limit" {
		t.Errorf("gaps not persisted: %+v", got.Gaps)
	}
}

func TestCursorStore_IsolatedCopies(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	c := &domain.ScanCursor{ChainID: 1, LastScannedBlock: 100}
	if err := store.Save(ctx, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's cursor must not reach the stored copy.
	c.LastScannedBlock = 999

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastScannedBlock != 100 {
		t.Errorf("stored cursor mutated externally: %d", got.LastScannedBlock)
	}
}
