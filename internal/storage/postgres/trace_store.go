package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// TraceStore implements storage.TraceStore using PostgreSQL.
type TraceStore struct {
	pool *Pool
}

// NewTraceStore creates a new TraceStore.
func NewTraceStore(pool *Pool) *TraceStore {
	return &TraceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TraceStore = (*TraceStore)(nil)

// hopRow is the JSONB representation of one hop. Amounts travel as decimal
// strings so no precision is lost in JSON numbers.
type hopRow struct {
	Address              string `json:"address"`
	Category             string `json:"category"`
	Amount               string `json:"amount"`
	ElapsedSincePrevious int64  `json:"elapsed_since_previous"`
	BlockNumber          int64  `json:"block_number"`
	TxHash               string `json:"tx_hash"`
	LogIndex             int    `json:"log_index"`
}

const traceColumns = `trace_id, exit_chain_id, exit_tx_hash, exit_log_index,
		exit_amount::text, exit_ts, recipient, role, matched_amount::text, truncated, hops`

// Insert adds a new trace. Returns ErrDuplicateKey if trace_id exists.
func (s *TraceStore) Insert(ctx context.Context, t *domain.FlowTrace) error {
	if t == nil || t.TraceID == "" {
		return storage.ErrInvalidInput
	}

	hops := make([]hopRow, len(t.Hops))
	for i, h := range t.Hops {
		hops[i] = hopRow{
			Address:              h.Address,
			Category:             string(h.Category),
			Amount:               bigIntText(h.Amount),
			ElapsedSincePrevious: h.ElapsedSincePrevious,
			BlockNumber:          h.BlockNumber,
			TxHash:               h.TxHash,
			LogIndex:             h.LogIndex,
		}
	}
	hopsJSON, err := json.Marshal(hops)
	if err != nil {
		return fmt.Errorf("encode hops: %w", err)
	}

	query := `
		INSERT INTO flow_traces (
			trace_id, exit_chain_id, exit_tx_hash, exit_log_index,
			exit_amount, exit_ts, recipient, role, matched_amount, truncated, hops
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::numeric, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		t.TraceID,
		t.Exit.ChainID,
		t.Exit.TxHash,
		t.Exit.LogIndex,
		bigIntText(t.ExitAmount),
		t.ExitTS,
		t.Recipient,
		string(t.Role),
		bigIntText(t.MatchedAmount),
		t.Truncated,
		hopsJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert flow trace: %w", err)
	}
	return nil
}

// GetByID retrieves a trace by its ID.
func (s *TraceStore) GetByID(ctx context.Context, traceID string) (*domain.FlowTrace, error) {
	query := `SELECT ` + traceColumns + ` FROM flow_traces WHERE trace_id = $1`

	rows, err := s.pool.Query(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("get trace by id: %w", err)
	}
	defer rows.Close()

	traces, err := scanTraces(rows)
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return nil, storage.ErrNotFound
	}
	return traces[0], nil
}

// GetByRole retrieves all traces with a terminal role.
func (s *TraceStore) GetByRole(ctx context.Context, role domain.Role) ([]*domain.FlowTrace, error) {
	query := `
		SELECT ` + traceColumns + `
		FROM flow_traces
		WHERE role = $1
		ORDER BY exit_ts ASC, trace_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("get traces by role: %w", err)
	}
	defer rows.Close()

	return scanTraces(rows)
}

// GetAll retrieves every trace.
func (s *TraceStore) GetAll(ctx context.Context) ([]*domain.FlowTrace, error) {
	query := `
		SELECT ` + traceColumns + `
		FROM flow_traces
		ORDER BY exit_ts ASC, trace_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all traces: %w", err)
	}
	defer rows.Close()

	return scanTraces(rows)
}

// scanTraces scans multiple rows into a slice of FlowTrace.
func scanTraces(rows pgx.Rows) ([]*domain.FlowTrace, error) {
	var traces []*domain.FlowTrace

	for rows.Next() {
		var (
			t             domain.FlowTrace
			exitAmount    string
			role          string
			matchedAmount string
			hopsRaw       []byte
		)

		err := rows.Scan(
			&t.TraceID,
			&t.Exit.ChainID,
			&t.Exit.TxHash,
			&t.Exit.LogIndex,
			&exitAmount,
			&t.ExitTS,
			&t.Recipient,
			&role,
			&matchedAmount,
			&t.Truncated,
			&hopsRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}

		t.Role = domain.Role(role)
		if t.ExitAmount, err = parseBigInt(exitAmount); err != nil {
			return nil, fmt.Errorf("scan exit amount: %w", err)
		}
		if t.MatchedAmount, err = parseBigInt(matchedAmount); err != nil {
			return nil, fmt.Errorf("scan matched amount: %w", err)
		}

		var hops []hopRow
		if err := json.Unmarshal(hopsRaw, &hops); err != nil {
			return nil, fmt.Errorf("decode hops: %w", err)
		}
		t.Hops = make([]domain.Hop, len(hops))
		for i, h := range hops {
			amount, ok := new(big.Int).SetString(h.Amount, 10)
			if !ok {
				return nil, fmt.Errorf("decode hop amount %q", h.Amount)
			}
			t.Hops[i] = domain.Hop{
				Address:              h.Address,
				Category:             domain.Category(h.Category),
				Amount:               amount,
				ElapsedSincePrevious: h.ElapsedSincePrevious,
				BlockNumber:          h.BlockNumber,
				TxHash:               h.TxHash,
				LogIndex:             h.LogIndex,
			}
		}

		traces = append(traces, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace rows: %w", err)
	}

	return traces, nil
}
