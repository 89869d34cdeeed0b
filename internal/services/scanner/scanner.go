// Package scanner retrieves and decodes trade events for the configured
// pools. One Scanner instance serves one run; per-pool scans share no
// mutable state and may execute concurrently.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/pkg/retry"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Config holds scanner configuration.
type Config struct {
	// ChunkSize is the maximum width of one eth_getLogs block range.
	// Default: 5000.
	ChunkSize int64

	// Retry is the per-sub-range retry policy. A sub-range that still
	// fails once the budget is spent aborts the pool scan with
	// ErrScanIncomplete.
	Retry retry.Config

	// Logger receives progress and retry diagnostics.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		ChunkSize: 5000,
		Retry: retry.Config{
			MaxRetries:     8,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         true,
		},
		Logger: slog.Default(),
	}
}

// Scanner streams decoded trade records for a pool over a block range.
type Scanner struct {
	chain   outbound.ChainSource
	decoder *Decoder
	config  Config
	logger  *slog.Logger
}

// New creates a Scanner.
func New(chain outbound.ChainSource, decoder *Decoder, config Config) (*Scanner, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain source is required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}

	defaults := ConfigDefaults()
	if config.ChunkSize == 0 {
		config.ChunkSize = defaults.ChunkSize
	}
	if config.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.Retry == (retry.Config{}) {
		config.Retry = defaults.Retry
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Scanner{
		chain:   chain,
		decoder: decoder,
		config:  config,
		logger:  config.Logger.With("component", "range-scanner"),
	}, nil
}

// blockRange is one inclusive sub-range of the scan interval.
type blockRange struct {
	from int64
	to   int64
}

// splitRange partitions [from, to] into contiguous sub-ranges of at most
// chunkSize blocks, in ascending order.
func splitRange(from, to, chunkSize int64) []blockRange {
	var out []blockRange
	for start := from; start <= to; start += chunkSize {
		end := start + chunkSize - 1
		if end > to {
			end = to
		}
		out = append(out, blockRange{from: start, to: end})
	}
	return out
}

// ForEachTrade scans [fromBlock, toBlock] of the pool's contract and
// calls fn for every decoded trade, in ascending sub-range order. A
// negative toBlock resolves to the chain head once, at call time.
// Sub-ranges are processed strictly sequentially; logs from a failed
// fetch attempt are discarded and the whole sub-range is re-fetched.
func (s *Scanner) ForEachTrade(ctx context.Context, pool entity.Pool, fromBlock, toBlock int64, fn func(entity.TradeRecord) error) error {
	if fromBlock < 0 {
		return fmt.Errorf("fromBlock must be non-negative, got %d", fromBlock)
	}
	if toBlock < 0 {
		head, err := s.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("pool %s: failed to resolve head block: %w", pool.Name, err)
		}
		toBlock = head
	}
	if toBlock < fromBlock {
		return fmt.Errorf("pool %s: toBlock %d precedes fromBlock %d", pool.Name, toBlock, fromBlock)
	}

	logger := s.logger.With("pool", pool.Name, "address", pool.Address.Hex())
	logger.Info("starting scan", "fromBlock", fromBlock, "toBlock", toBlock)

	for _, sub := range splitRange(fromBlock, toBlock, s.config.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pool %s: scan cancelled: %w", pool.Name, err)
		}

		records, err := s.fetchSubRange(ctx, pool, sub, logger)
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := fn(record); err != nil {
				return err
			}
		}

		logger.Debug("processed sub-range", "fromBlock", sub.from, "toBlock", sub.to, "trades", len(records))
	}

	logger.Info("scan complete", "fromBlock", fromBlock, "toBlock", toBlock)
	return nil
}

// Scan is ForEachTrade collecting into a slice.
func (s *Scanner) Scan(ctx context.Context, pool entity.Pool, fromBlock, toBlock int64) ([]entity.TradeRecord, error) {
	var records []entity.TradeRecord
	err := s.ForEachTrade(ctx, pool, fromBlock, toBlock, func(r entity.TradeRecord) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// fetchSubRange fetches and decodes one sub-range under the retry
// policy. A sub-range's records are accepted only from a fully
// successful pass; malformed events are permanent and abort immediately.
func (s *Scanner) fetchSubRange(ctx context.Context, pool entity.Pool, sub blockRange, logger *slog.Logger) ([]entity.TradeRecord, error) {
	isRetryable := func(err error) bool {
		var malformed *MalformedEventError
		return !errors.As(err, &malformed)
	}
	onRetry := func(attempt int, err error, backoff time.Duration) {
		logger.Warn("sub-range fetch failed, retrying",
			"fromBlock", sub.from,
			"toBlock", sub.to,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
	}

	records, err := retry.Do(ctx, s.config.Retry, isRetryable, onRetry, func() ([]entity.TradeRecord, error) {
		rawLogs, err := s.chain.FilterLogs(ctx, pool.Address, SwapNFTOutPairTopic, sub.from, sub.to)
		if err != nil {
			return nil, err
		}

		decoded := make([]entity.TradeRecord, 0, len(rawLogs))
		for _, raw := range rawLogs {
			record, err := s.decoder.Decode(ctx, raw)
			if err != nil {
				return nil, err
			}
			decoded = append(decoded, record)
		}
		return decoded, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pool %s: scan cancelled: %w", pool.Name, ctx.Err())
		}
		var malformed *MalformedEventError
		if errors.As(err, &malformed) {
			return nil, fmt.Errorf("pool %s: %w", pool.Name, err)
		}
		return nil, fmt.Errorf("pool %s blocks [%d, %d]: %w: %v", pool.Name, sub.from, sub.to, ErrScanIncomplete, err)
	}
	return records, nil
}
