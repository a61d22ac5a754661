package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

func testTransfer(tx string, from string, amount, ts int64) *domain.Event {
	return &domain.Event{
		Kind:      domain.KindTransfer,
		ChainID:   1,
		TxHash:    tx,
		Timestamp: ts,
		FromAddr:  from,
		ToAddr:    "0xto",
		Amount:    big.NewInt(amount),
	}
}

func TestTransferStore_InsertBulkSkipsDuplicates(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.Event{
		testTransfer("0xa", "0xfrom", 100, 1000),
		testTransfer("0xa", "0xfrom", 100, 1000), // duplicate key
		testTransfer("0xb", "0xfrom", 200, 2000),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.OutgoingInWindow(ctx, "0xfrom", 0, 9999, nil)
	if err != nil {
		t.Fatalf("OutgoingInWindow failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("transfers = %d, want 2 (duplicate skipped)", len(got))
	}
}

func TestTransferStore_WindowBoundaries(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.Event{
		testTransfer("0xa", "0xfrom", 100, 1000), // at afterTS, excluded
		testTransfer("0xb", "0xfrom", 100, 1001),
		testTransfer("0xc", "0xfrom", 100, 2000), // at untilTS, included
		testTransfer("0xd", "0xfrom", 100, 2001), // past untilTS
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.OutgoingInWindow(ctx, "0xfrom", 1000, 2000, nil)
	if err != nil {
		t.Fatalf("OutgoingInWindow failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("transfers = %d, want 2 for (1000, 2000]", len(got))
	}
	if got[0].Timestamp != 1001 || got[1].Timestamp != 2000 {
		t.Errorf("timestamps = %d, %d", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestTransferStore_MinAmountFilter(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	batch := []*domain.Event{
		testTransfer("0xa", "0xfrom", 499, 1000),
		testTransfer("0xb", "0xfrom", 500, 1100),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.OutgoingInWindow(ctx, "0xfrom", 0, 9999, big.NewInt(500))
	if err != nil {
		t.Fatalf("OutgoingInWindow failed: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Int64() != 500 {
		t.Errorf("min-amount filter returned %d transfers", len(got))
	}
}

func TestTransferStore_LatestTimestamp(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if _, err := store.LatestTimestamp(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("empty index error = %v, want ErrNotFound", err)
	}

	if err := store.InsertBulk(ctx, []*domain.Event{
		testTransfer("0xa", "0xfrom", 100, 3000),
		testTransfer("0xb", "0xfrom", 100, 1000),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	ts, err := store.LatestTimestamp(ctx)
	if err != nil {
		t.Fatalf("LatestTimestamp failed: %v", err)
	}
	if ts != 3000 {
		t.Errorf("LatestTimestamp = %d, want 3000", ts)
	}
}
