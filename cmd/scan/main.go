// Package main provides the log-scan entry point. It walks a block range,
// decodes staking and token events, and persists them for later analysis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/observability"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/scanner"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/clickhouse"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/memory"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/migrations"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/postgres"
)

func main() {
	rpcURL := flag.String("rpc", "", "HTTP JSON-RPC endpoint (required)")
	wsURL := flag.String("ws", "", "WebSocket endpoint for head tracking (optional)")
	chainID := flag.Int64("chain-id", 42161, "Chain ID")
	contracts := flag.String("contracts", "", "Comma-separated contract addresses to scan (required)")
	fromBlock := flag.Int64("from", 0, "First block to scan")
	toBlock := flag.Int64("to", 0, "Last block to scan (0 = current head)")
	confirmations := flag.Int64("confirmations", 20, "Blocks behind head considered final")
	chunkSize := flag.Int64("chunk", 2000, "Initial blocks per eth_getLogs request")
	maxHalvings := flag.Int("max-halvings", 6, "Max chunk splits before recording a gap")
	workers := flag.Int("workers", 4, "Concurrent chunk fetches")
	postgresDSN := flag.String("postgres", "", "Postgres DSN (empty = in-memory stores)")
	clickhouseDSN := flag.String("clickhouse", "", "ClickHouse DSN for the transfer index (empty = in-memory)")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve /metrics on (optional)")
	flag.Parse()

	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	if *rpcURL == "" || *contracts == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling scan", sig)
		cancel()
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	eventStore, transferStore, cursorStore, cleanup, err := openStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer cleanup()

	client := ethrpc.NewHTTPClient(*rpcURL)

	target, err := resolveTarget(ctx, client, *wsURL, *toBlock, *confirmations)
	if err != nil {
		logger.Fatalf("resolve target block: %v", err)
	}

	sc, err := scanner.New(scanner.Options{
		Client:      client,
		ChainID:     *chainID,
		Contracts:   splitList(*contracts),
		ChunkSize:   *chunkSize,
		MaxHalvings: *maxHalvings,
		Workers:     *workers,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		logger.Fatalf("create scanner: %v", err)
	}

	cursor, err := cursorStore.Get(ctx, *chainID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Fatalf("load cursor: %v", err)
		}
		cursor = &domain.ScanCursor{ChainID: *chainID, LastScannedBlock: *fromBlock - 1}
	}

	result, err := sc.ScanFrom(ctx, cursor, domain.BlockRange{From: *fromBlock, To: target})
	if err != nil {
		logger.Fatalf("scan: %v", err)
	}

	var events, transfers []*domain.Event
	for _, e := range result.Events {
		if e.Kind == domain.KindTransfer {
			transfers = append(transfers, e)
		} else {
			events = append(events, e)
		}
	}

	inserted := 0
	for _, e := range events {
		if err := eventStore.Insert(ctx, e); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			logger.Fatalf("persist event %s/%d: %v", e.TxHash, e.LogIndex, err)
		}
		inserted++
	}
	if err := transferStore.InsertBulk(ctx, transfers); err != nil {
		logger.Fatalf("persist transfers: %v", err)
	}
	if err := cursorStore.Save(ctx, cursor); err != nil {
		logger.Fatalf("save cursor: %v", err)
	}

	fmt.Printf("Scanned through block %d\n", result.LastScanned)
	fmt.Printf("  Events:    %d decoded, %d new\n", len(events), inserted)
	fmt.Printf("  Transfers: %d indexed\n", len(transfers))
	fmt.Printf("  Gaps:      %d\n", len(result.Gaps))
	for _, g := range result.Gaps {
		fmt.Printf("    [%d, %d]: %s\n", g.Range.From, g.Range.To, g.Reason)
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("  Warnings:  %d\n", len(result.Warnings))
	}
}

// resolveTarget picks the scan upper bound: an explicit block, the head seen
// over WS, or the head from HTTP, each reduced by the confirmation depth
// where it came from the live chain.
func resolveTarget(ctx context.Context, client *ethrpc.HTTPClient, wsURL string, toBlock, confirmations int64) (int64, error) {
	if toBlock > 0 {
		return toBlock, nil
	}
	if wsURL != "" {
		watcher, err := ethrpc.NewHeadWatcher(ctx, wsURL, nil)
		if err == nil {
			defer watcher.Close()
			if head := watcher.SafeHead(confirmations); head > 0 {
				return head, nil
			}
		}
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	head -= confirmations
	if head < 0 {
		head = 0
	}
	return head, nil
}

func openStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.EventStore, storage.TransferStore, storage.CursorStore, func(), error) {
	var (
		events    storage.EventStore
		transfers storage.TransferStore
		cursors   storage.CursorStore
		cleanups  []func()
	)

	if postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
		events = postgres.NewEventStore(pool)
		cursors = postgres.NewCursorStore(pool)
		cleanups = append(cleanups, pool.Close)
	} else {
		events = memory.NewEventStore()
		cursors = memory.NewCursorStore()
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		transfers = clickhouse.NewTransferStore(conn)
		cleanups = append(cleanups, func() { conn.Close() })
	} else {
		transfers = memory.NewTransferStore()
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return events, transfers, cursors, cleanup, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
