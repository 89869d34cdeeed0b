// Package aggregator folds decoded trade records into per-address volume
// totals. Aggregation is a pure in-memory reduction; every trade counts
// exactly once regardless of the order, grouping or duplication of the
// input stream.
package aggregator

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
)

// UnknownPoolError reports a trade record whose emitting contract is not
// part of the configured pool set.
type UnknownPoolError struct {
	Pool common.Address
}

func (e *UnknownPoolError) Error() string {
	return fmt.Sprintf("trade from unknown pool contract %s", e.Pool.Hex())
}

// Aggregator accumulates trade records for one run. It is not safe for
// concurrent use; callers feeding it from several goroutines must
// serialize Add calls.
type Aggregator struct {
	pools  *entity.PoolSet
	logger *slog.Logger

	volumes map[string]*entity.AddressVolume
	seen    map[string]bool
	trades  int
	dupes   int
}

// New creates an Aggregator over the configured pool set.
func New(pools *entity.PoolSet, logger *slog.Logger) (*Aggregator, error) {
	if pools == nil {
		return nil, fmt.Errorf("pool set is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		pools:   pools,
		logger:  logger.With("component", "volume-aggregator"),
		volumes: make(map[string]*entity.AddressVolume),
		seen:    make(map[string]bool),
	}, nil
}

// Add folds one trade record into the running totals. Records already
// seen under the same (txHash, logIndex) identity are counted once and
// otherwise ignored.
func (a *Aggregator) Add(record entity.TradeRecord) error {
	collection, ok := a.pools.CollectionFor(record.Pool)
	if !ok {
		return &UnknownPoolError{Pool: record.Pool}
	}

	id := record.ID()
	if a.seen[id] {
		a.dupes++
		a.logger.Debug("skipping duplicate trade", "id", id)
		return nil
	}
	a.seen[id] = true
	a.trades++

	addr := entity.NormalizeAddress(record.Trader)
	volume, ok := a.volumes[addr]
	if !ok {
		volume = entity.NewAddressVolume(addr)
		a.volumes[addr] = volume
	}
	volume.Add(collection, record.AmountTokens())
	return nil
}

// Volumes returns the per-address totals accumulated so far, keyed by
// normalized trader address.
func (a *Aggregator) Volumes() map[string]*entity.AddressVolume {
	return a.volumes
}

// TradeCount returns how many distinct trades were folded in.
func (a *Aggregator) TradeCount() int {
	return a.trades
}

// DuplicateCount returns how many duplicate records were discarded.
func (a *Aggregator) DuplicateCount() int {
	return a.dupes
}

// Aggregate reduces a record slice in one call. It is equivalent to
// creating an Aggregator and calling Add for every record.
func Aggregate(records []entity.TradeRecord, pools *entity.PoolSet, logger *slog.Logger) (map[string]*entity.AddressVolume, error) {
	agg, err := New(pools, logger)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := agg.Add(record); err != nil {
			return nil, err
		}
	}
	return agg.Volumes(), nil
}
