package storage

import (
	"context"
	"math/big"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// EventStore provides access to the append-only protocol event log.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if
	// (chain_id, tx_hash, log_index) exists.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any
	// duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByTimeRange retrieves events within [start, end), ordered by
	// (timestamp, block_number, log_index) ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error)

	// GetByKind retrieves all events of one kind, ordered ASC.
	GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error)

	// GetExits retrieves all exit events (withdraw, exit_redeem), ordered ASC.
	GetExits(ctx context.Context) ([]*domain.Event, error)

	// GetAll retrieves every event, ordered ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)

	// LatestTimestamp returns the timestamp of the newest stored event, the
	// observed event horizon. Returns ErrNotFound on an empty store.
	LatestTimestamp(ctx context.Context) (int64, error)
}

// TransferStore indexes token transfers for the flow tracer's windowed
// forward queries. Kept separate from EventStore because transfers are
// orders of magnitude more numerous than lifecycle events.
type TransferStore interface {
	// InsertBulk adds transfer events. Duplicates are skipped, not errors:
	// the transfer index is rebuilt opportunistically across runs.
	InsertBulk(ctx context.Context, transfers []*domain.Event) error

	// OutgoingInWindow retrieves transfers out of from with
	// timestamp in (afterTS, untilTS] and amount >= minAmount, ordered by
	// (timestamp, block_number, log_index) ASC. minAmount may be nil.
	OutgoingInWindow(ctx context.Context, from string, afterTS, untilTS int64, minAmount *big.Int) ([]*domain.Event, error)

	// LatestTimestamp returns the newest indexed transfer timestamp.
	// Returns ErrNotFound on an empty index.
	LatestTimestamp(ctx context.Context) (int64, error)
}

// CursorStore persists scan resumption state per chain.
type CursorStore interface {
	// Get retrieves the cursor for a chain. Returns ErrNotFound if the chain
	// has never been scanned.
	Get(ctx context.Context, chainID int64) (*domain.ScanCursor, error)

	// Save upserts the cursor. Cursors are the one mutable row in the
	// system; everything derived from events is recomputable.
	Save(ctx context.Context, c *domain.ScanCursor) error
}

// TraceStore provides access to persisted flow traces.
type TraceStore interface {
	// Insert adds a new trace. Returns ErrDuplicateKey if trace_id exists.
	Insert(ctx context.Context, t *domain.FlowTrace) error

	// GetByID retrieves a trace by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, traceID string) (*domain.FlowTrace, error)

	// GetByRole retrieves all traces with a terminal role, ordered by
	// exit (timestamp implied by trace id ordering is not guaranteed;
	// callers sort when order matters).
	GetByRole(ctx context.Context, role domain.Role) ([]*domain.FlowTrace, error)

	// GetAll retrieves every trace.
	GetAll(ctx context.Context) ([]*domain.FlowTrace, error)
}
