package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// TransferStore implements storage.TransferStore using ClickHouse. The
// transfers table is a ReplacingMergeTree ordered by (from_addr, ts,
// block_number, log_index), which serves the tracer's windowed forward
// queries from the primary key and absorbs re-inserted rows across runs.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertBulk adds transfer events. Duplicates are absorbed by the
// ReplacingMergeTree engine rather than rejected.
func (s *TransferStore) InsertBulk(ctx context.Context, transfers []*domain.Event) error {
	if len(transfers) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			chain_id, block_number, tx_hash, log_index, ts, from_addr, to_addr, amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range transfers {
		if e == nil {
			return storage.ErrInvalidInput
		}
		amount := e.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		err = batch.Append(
			e.ChainID, e.BlockNumber, e.TxHash, int32(e.LogIndex),
			e.Timestamp, e.FromAddr, e.ToAddr, amount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// OutgoingInWindow retrieves transfers out of from with timestamp in
// (afterTS, untilTS] and amount >= minAmount, ordered ASC.
func (s *TransferStore) OutgoingInWindow(ctx context.Context, from string, afterTS, untilTS int64, minAmount *big.Int) ([]*domain.Event, error) {
	query := `
		SELECT chain_id, block_number, tx_hash, log_index, ts, from_addr, to_addr, amount
		FROM transfers
		WHERE from_addr = ? AND ts > ? AND ts <= ?
	`
	args := []interface{}{from, afterTS, untilTS}
	if minAmount != nil {
		query += ` AND amount >= ?`
		args = append(args, minAmount)
	}
	query += ` ORDER BY ts ASC, block_number ASC, log_index ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outgoing transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// LatestTimestamp returns the newest indexed transfer timestamp.
func (s *TransferStore) LatestTimestamp(ctx context.Context) (int64, error) {
	var (
		count  uint64
		latest int64
	)
	err := s.conn.QueryRow(ctx, `SELECT count(), max(ts) FROM transfers`).Scan(&count, &latest)
	if err != nil {
		return 0, fmt.Errorf("query latest transfer timestamp: %w", err)
	}
	if count == 0 {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

// scanTransfers scans multiple rows into transfer events.
func scanTransfers(rows chRows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e        domain.Event
			logIndex int32
			amount   big.Int
		)

		err := rows.Scan(
			&e.ChainID, &e.BlockNumber, &e.TxHash, &logIndex,
			&e.Timestamp, &e.FromAddr, &e.ToAddr, &amount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		e.Kind = domain.KindTransfer
		e.LogIndex = int(logIndex)
		e.Amount = new(big.Int).Set(&amount)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return events, nil
}
