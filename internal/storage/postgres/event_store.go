package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `kind, chain_id, block_number, tx_hash, log_index, ts, from_addr, to_addr, amount::text, extra`

const insertEventQuery = `
	INSERT INTO events (
		kind, chain_id, block_number, tx_hash, log_index, ts, from_addr, to_addr, amount, extra
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)
`

// Insert adds a new event. Returns ErrDuplicateKey if (chain_id, tx_hash, log_index) exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertEventQuery,
		string(e.Kind),
		e.ChainID,
		e.BlockNumber,
		e.TxHash,
		e.LogIndex,
		e.Timestamp,
		e.FromAddr,
		e.ToAddr,
		bigIntText(e.Amount),
		e.Extra,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertEventQuery,
			string(e.Kind),
			e.ChainID,
			e.BlockNumber,
			e.TxHash,
			e.LogIndex,
			e.Timestamp,
			e.FromAddr,
			e.ToAddr,
			bigIntText(e.Amount),
			e.Extra,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves events within [start, end), ordered ASC.
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE ts >= $1 AND ts < $2
		ORDER BY ts ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves all events of one kind, ordered ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE kind = $1
		ORDER BY ts ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get events by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetExits retrieves all exit events, ordered ASC.
func (s *EventStore) GetExits(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE kind IN ($1, $2)
		ORDER BY ts ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.KindWithdraw), string(domain.KindExitRedeem))
	if err != nil {
		return nil, fmt.Errorf("get exit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetAll retrieves every event, ordered ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY ts ASC, block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LatestTimestamp returns the newest stored event timestamp.
func (s *EventStore) LatestTimestamp(ctx context.Context) (int64, error) {
	query := `SELECT ts FROM events ORDER BY ts DESC LIMIT 1`

	var ts int64
	err := s.pool.QueryRow(ctx, query).Scan(&ts)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get latest timestamp: %w", err)
	}
	return ts, nil
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e      domain.Event
			kind   string
			amount string
		)

		err := rows.Scan(
			&kind,
			&e.ChainID,
			&e.BlockNumber,
			&e.TxHash,
			&e.LogIndex,
			&e.Timestamp,
			&e.FromAddr,
			&e.ToAddr,
			&amount,
			&e.Extra,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)
		e.Amount, err = parseBigInt(amount)
		if err != nil {
			return nil, fmt.Errorf("scan event amount: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
