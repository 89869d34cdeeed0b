// Package airdrop orchestrates one full run: scan every configured pool,
// aggregate per-address volume, compute both distribution schedules and
// hand the assembled report to the export collaborators.
package airdrop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
	"github.com/berachain-tools/beradrop/internal/services/aggregator"
	"github.com/berachain-tools/beradrop/internal/services/distribution"
	"github.com/berachain-tools/beradrop/internal/services/scanner"
)

// Config holds run-level configuration.
type Config struct {
	// Pools is the immutable pool configuration for the run.
	Pools *entity.PoolSet

	// TotalSupply is the number of whole tokens to distribute under
	// each schedule. Default: 34000.
	TotalSupply decimal.Decimal

	// FromBlock is the first block of the scan interval.
	FromBlock int64

	// ToBlock is the last block of the scan interval. Negative means
	// the chain head, resolved once at run start.
	ToBlock int64

	// Logger receives run progress.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		TotalSupply: decimal.NewFromInt(34000),
		ToBlock:     -1,
		Logger:      slog.Default(),
	}
}

// Service runs the scan-aggregate-distribute pipeline.
type Service struct {
	scanner *scanner.Scanner
	chain   outbound.ChainSource
	store   outbound.AllocationStore
	writers []outbound.ReportWriter
	config  Config
	logger  *slog.Logger
}

// New creates a Service. store may be nil to skip persistence; writers
// may be empty to skip file export.
func New(sc *scanner.Scanner, chain outbound.ChainSource, store outbound.AllocationStore, writers []outbound.ReportWriter, config Config) (*Service, error) {
	if sc == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain source is required")
	}
	if config.Pools == nil {
		return nil, fmt.Errorf("pool set is required")
	}

	defaults := ConfigDefaults()
	if config.TotalSupply.IsZero() {
		config.TotalSupply = defaults.TotalSupply
	}
	if config.TotalSupply.Sign() <= 0 {
		return nil, fmt.Errorf("total supply must be positive, got %s", config.TotalSupply)
	}
	if config.FromBlock < 0 {
		return nil, fmt.Errorf("fromBlock must be non-negative, got %d", config.FromBlock)
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Service{
		scanner: sc,
		chain:   chain,
		store:   store,
		writers: writers,
		config:  config,
		logger:  config.Logger.With("component", "airdrop"),
	}, nil
}

// Run executes one full pipeline pass and returns the assembled report.
// Any pool scan failing fails the whole run; a run never reports from a
// partial scan.
func (s *Service) Run(ctx context.Context) (*entity.RunReport, error) {
	fromBlock, toBlock := s.config.FromBlock, s.config.ToBlock
	if toBlock < 0 {
		head, err := s.chain.LatestBlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve head block: %w", err)
		}
		toBlock = head
	}

	s.logger.Info("starting run",
		"pools", len(s.config.Pools.Pools()),
		"fromBlock", fromBlock,
		"toBlock", toBlock,
		"totalSupply", s.config.TotalSupply)

	records, err := s.scanPools(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	agg, err := aggregator.New(s.config.Pools, s.config.Logger)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := agg.Add(record); err != nil {
			return nil, fmt.Errorf("aggregation failed: %w", err)
		}
	}
	volumes := agg.Volumes()

	engine, err := distribution.New(s.config.TotalSupply, s.config.Logger)
	if err != nil {
		return nil, err
	}

	byCollection, stats, err := engine.ByCollection(volumes, s.config.Pools.Collections())
	if err != nil {
		return nil, fmt.Errorf("by-collection distribution failed: %w", err)
	}
	byTotal, err := engine.ByTotalVolume(volumes)
	if err != nil {
		return nil, fmt.Errorf("by-total-volume distribution failed: %w", err)
	}

	report := s.buildReport(fromBlock, toBlock, agg, stats, byCollection, byTotal)

	runID := fmt.Sprintf("%d-%d-%s", fromBlock, toBlock, report.GeneratedAt.UTC().Format("20060102T150405Z"))
	if s.store != nil {
		if err := s.store.SaveRun(ctx, runID, report); err != nil {
			return nil, fmt.Errorf("failed to persist run %s: %w", runID, err)
		}
	}
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to export report: %w", err)
		}
	}

	s.logger.Info("run complete",
		"runID", runID,
		"trades", agg.TradeCount(),
		"addresses", len(volumes),
		"byCollectionEntries", len(byCollection),
		"byTotalEntries", len(byTotal))
	return report, nil
}

// scanPools scans every pool concurrently and merges the results. The
// merged order is pool declaration order, so downstream consumers see a
// stable stream regardless of goroutine scheduling.
func (s *Service) scanPools(ctx context.Context, fromBlock, toBlock int64) ([]entity.TradeRecord, error) {
	pools := s.config.Pools.Pools()

	perPool := make([][]entity.TradeRecord, len(pools))
	errs := make([]error, len(pools))

	var wg sync.WaitGroup
	for i, pool := range pools {
		wg.Add(1)
		go func(i int, pool entity.Pool) {
			defer wg.Done()
			perPool[i], errs[i] = s.scanner.Scan(ctx, pool, fromBlock, toBlock)
		}(i, pool)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("scan failed for pool %s: %w", pools[i].Name, err)
		}
	}

	var merged []entity.TradeRecord
	for _, records := range perPool {
		merged = append(merged, records...)
	}
	return merged, nil
}

func (s *Service) buildReport(fromBlock, toBlock int64, agg *aggregator.Aggregator, stats []entity.CollectionStats, byCollection, byTotal []entity.AllocationEntry) *entity.RunReport {
	var poolNames []string
	for _, p := range s.config.Pools.Pools() {
		poolNames = append(poolNames, p.Name)
	}

	distributedColl := decimal.Zero
	undistributedColl := decimal.Zero
	for _, st := range stats {
		if st.Undistributed {
			undistributedColl = undistributedColl.Add(st.TokensAllocated)
		} else {
			distributedColl = distributedColl.Add(st.TokensAllocated)
		}
	}

	distributedTotal := decimal.Zero
	for _, e := range byTotal {
		distributedTotal = distributedTotal.Add(e.Allocation)
	}

	return &entity.RunReport{
		GeneratedAt: time.Now().UTC(),
		FromBlock:   fromBlock,
		ToBlock:     toBlock,
		Summary: entity.RunSummary{
			TotalSupply:        s.config.TotalSupply,
			UniqueAddresses:    len(agg.Volumes()),
			TotalEvents:        agg.TradeCount(),
			Pools:              poolNames,
			CollectionStats:    stats,
			DistributedByColl:  distributedColl,
			UndistributedColl:  undistributedColl,
			DistributedByTotal: distributedTotal,
		},
		ByCollection: byCollection,
		ByTotal:      byTotal,
	}
}
