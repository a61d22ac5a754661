package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/observability"
)

const (
	defaultChunkSize   = int64(2000)
	defaultMaxHalvings = 6
	defaultWorkers     = 4
)

// LogClient is the RPC surface the scanner needs.
type LogClient interface {
	GetLogs(ctx context.Context, filter ethrpc.LogFilter) ([]ethrpc.Log, error)
	HeaderByNumber(ctx context.Context, number int64) (*ethrpc.Header, error)
}

// Options configures a Scanner. Zero values fall back to defaults.
type Options struct {
	Client    LogClient
	ChainID   int64
	Contracts []string
	Decoder   *Decoder
	// ChunkSize is the initial block span of one eth_getLogs request.
	ChunkSize int64
	// MaxHalvings bounds how many times a failing chunk is split in half
	// before the remaining sub-range is recorded as a gap.
	MaxHalvings int
	// Workers is the number of chunks fetched concurrently.
	Workers int
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// Result is the outcome of scanning one block range. Gaps and warnings are
// part of the result, never silently dropped.
type Result struct {
	Events      []*domain.Event
	Gaps        []domain.ScanGap
	Warnings    []string
	LastScanned int64
}

// Scanner walks a block range in chunks, decodes matching logs into domain
// events and degrades gracefully when the provider rejects a range.
type Scanner struct {
	client      LogClient
	chainID     int64
	contracts   []string
	decoder     *Decoder
	chunkSize   int64
	maxHalvings int
	workers     int
	logger      *log.Logger
	metrics     *observability.Metrics

	mu         sync.Mutex
	blockTimes map[int64]int64
}

// New creates a Scanner from options. Client is required; a nil Decoder gets
// the default protocol event set.
func New(opts Options) (*Scanner, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("scanner: client is required")
	}
	s := &Scanner{
		client:      opts.Client,
		chainID:     opts.ChainID,
		contracts:   opts.Contracts,
		decoder:     opts.Decoder,
		chunkSize:   opts.ChunkSize,
		maxHalvings: opts.MaxHalvings,
		workers:     opts.Workers,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		blockTimes:  make(map[int64]int64),
	}
	if s.decoder == nil {
		s.decoder = NewDecoder(opts.ChainID)
	}
	if s.chunkSize <= 0 {
		s.chunkSize = defaultChunkSize
	}
	if s.maxHalvings <= 0 {
		s.maxHalvings = defaultMaxHalvings
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[scanner] ", log.LstdFlags)
	}
	return s, nil
}

// Scan walks the inclusive block range and returns all decoded events in
// total event order. Chunks the provider rejects are halved until they fit;
// sub-ranges still failing after maxHalvings become gaps in the result.
func (s *Scanner) Scan(ctx context.Context, rng domain.BlockRange) (*Result, error) {
	if rng.From > rng.To {
		return nil, fmt.Errorf("scanner: invalid range [%d, %d]", rng.From, rng.To)
	}

	chunks := splitRange(rng, s.chunkSize)
	results := make([]*Result, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := s.scanChunk(gctx, chunk, 0)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Result{LastScanned: rng.To}
	for _, res := range results {
		merged.Events = append(merged.Events, res.Events...)
		merged.Gaps = append(merged.Gaps, res.Gaps...)
		merged.Warnings = append(merged.Warnings, res.Warnings...)
	}
	sort.Slice(merged.Events, func(i, j int) bool {
		return merged.Events[i].Less(merged.Events[j])
	})
	sort.Slice(merged.Gaps, func(i, j int) bool {
		return merged.Gaps[i].Range.From < merged.Gaps[j].Range.From
	})
	return merged, nil
}

// ScanFrom resumes from a cursor: only the uncovered tail of target is
// scanned and the cursor is advanced, accumulating any new gaps. A target
// already behind the cursor returns an empty result.
func (s *Scanner) ScanFrom(ctx context.Context, cursor *domain.ScanCursor, target domain.BlockRange) (*Result, error) {
	rng, ok := cursor.NextRange(target)
	if !ok {
		return &Result{LastScanned: cursor.LastScannedBlock}, nil
	}
	res, err := s.Scan(ctx, rng)
	if err != nil {
		return nil, err
	}
	cursor.LastScannedBlock = res.LastScanned
	cursor.Gaps = append(cursor.Gaps, res.Gaps...)
	return res, nil
}

// scanChunk fetches one chunk, halving on provider range limits. Transient
// failures were already retried inside the RPC client; whatever still fails
// here after maxHalvings is recorded as a gap rather than aborting the scan.
func (s *Scanner) scanChunk(ctx context.Context, rng domain.BlockRange, depth int) (*Result, error) {
	start := time.Now()
	logs, err := s.client.GetLogs(ctx, ethrpc.LogFilter{
		FromBlock: ethrpc.FormatQuantity(rng.From),
		ToBlock:   ethrpc.FormatQuantity(rng.To),
		Address:   s.contracts,
		Topics:    [][]string{s.decoder.Topics()},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if depth < s.maxHalvings && rng.From < rng.To && errors.Is(err, ethrpc.ErrRangeTooLarge) {
			if s.metrics != nil {
				s.metrics.RangeHalvings.Inc()
			}
			mid := rng.From + (rng.To-rng.From)/2
			s.logger.Printf("range [%d, %d] too large, halving at %d", rng.From, rng.To, mid)
			left, err := s.scanChunk(ctx, domain.BlockRange{From: rng.From, To: mid}, depth+1)
			if err != nil {
				return nil, err
			}
			right, err := s.scanChunk(ctx, domain.BlockRange{From: mid + 1, To: rng.To}, depth+1)
			if err != nil {
				return nil, err
			}
			left.Events = append(left.Events, right.Events...)
			left.Gaps = append(left.Gaps, right.Gaps...)
			left.Warnings = append(left.Warnings, right.Warnings...)
			return left, nil
		}

		s.logger.Printf("range [%d, %d] abandoned: %v", rng.From, rng.To, err)
		if s.metrics != nil {
			s.metrics.ScanGaps.Inc()
		}
		return &Result{
			Gaps: []domain.ScanGap{{Range: rng, Reason: err.Error()}},
		}, nil
	}

	res := &Result{LastScanned: rng.To}
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ts, err := s.blockTime(ctx, lg.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("resolve timestamp of block %s: %w", lg.BlockNumber, err)
		}
		event, err := s.decoder.Decode(lg, ts)
		if err != nil {
			warning := fmt.Sprintf("skipped log %s/%s: %v", lg.TransactionHash, lg.LogIndex, err)
			s.logger.Print(warning)
			res.Warnings = append(res.Warnings, warning)
			if s.metrics != nil {
				s.metrics.DecodeFailures.Inc()
			}
			continue
		}
		res.Events = append(res.Events, event)
		if s.metrics != nil {
			s.metrics.DecodedEvents.WithLabelValues(string(event.Kind)).Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.ScannedBlocks.Add(float64(rng.To - rng.From + 1))
		s.metrics.ScannedLogs.Add(float64(len(logs)))
		s.metrics.ChunkDuration.Observe(time.Since(start).Seconds())
	}
	return res, nil
}

// blockTime resolves a block's timestamp through a process-local cache.
func (s *Scanner) blockTime(ctx context.Context, blockNumber string) (int64, error) {
	number, err := ethrpc.ParseQuantity(blockNumber)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	ts, ok := s.blockTimes[number]
	s.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := s.client.HeaderByNumber(ctx, number)
	if err != nil {
		return 0, err
	}
	if header == nil {
		return 0, fmt.Errorf("block %d not found", number)
	}
	ts, err = ethrpc.ParseQuantity(header.Timestamp)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.blockTimes[number] = ts
	s.mu.Unlock()
	return ts, nil
}

// splitRange cuts an inclusive range into chunks of at most size blocks.
func splitRange(rng domain.BlockRange, size int64) []domain.BlockRange {
	var chunks []domain.BlockRange
	for from := rng.From; from <= rng.To; from += size {
		to := from + size - 1
		if to > rng.To {
			to = rng.To
		}
		chunks = append(chunks, domain.BlockRange{From: from, To: to})
	}
	return chunks
}
