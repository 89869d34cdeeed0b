// Package distribution computes pro-rata token allocation schedules from
// aggregated volume data. All arithmetic is exact decimal; divisions
// round half-up at the token's native 18-decimal scale, so the summed
// error of a schedule stays below one smallest unit per recipient.
package distribution

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
)

// Engine computes allocation schedules for one total supply.
type Engine struct {
	totalSupply decimal.Decimal
	logger      *slog.Logger
}

// New creates an Engine distributing totalSupply whole tokens.
func New(totalSupply decimal.Decimal, logger *slog.Logger) (*Engine, error) {
	if totalSupply.Sign() <= 0 {
		return nil, fmt.Errorf("total supply must be positive, got %s", totalSupply)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		totalSupply: totalSupply,
		logger:      logger.With("component", "distribution-engine"),
	}, nil
}

// ByCollection splits the supply equally across the given collections,
// then allocates each collection's share pro-rata by the volume traded
// in that collection. A collection with zero volume keeps its share
// undistributed; it is never redistributed to the other collections.
// Returned entries carry only addresses with a positive allocation.
func (e *Engine) ByCollection(volumes map[string]*entity.AddressVolume, collections []string) ([]entity.AllocationEntry, []entity.CollectionStats, error) {
	if len(collections) == 0 {
		return nil, nil, fmt.Errorf("at least one collection is required")
	}

	perCollection := e.totalSupply.DivRound(decimal.NewFromInt(int64(len(collections))), entity.TokenDecimals)

	totals := make(map[string]decimal.Decimal, len(collections))
	traders := make(map[string]int, len(collections))
	for _, c := range collections {
		totals[c] = decimal.Zero
	}
	for _, v := range volumes {
		for c, amount := range v.Collections {
			if _, ok := totals[c]; !ok {
				return nil, nil, fmt.Errorf("volume recorded for unknown collection %q", c)
			}
			totals[c] = totals[c].Add(amount)
			if amount.Sign() > 0 {
				traders[c]++
			}
		}
	}

	allocations := make(map[string]decimal.Decimal)
	stats := make([]entity.CollectionStats, 0, len(collections))
	for _, c := range collections {
		st := entity.CollectionStats{
			Collection:    c,
			TotalVolume:   totals[c],
			UniqueTraders: traders[c],
		}
		if totals[c].Sign() == 0 {
			// The share stays reserved for the collection; Undistributed
			// marks it as never reaching any address.
			st.Undistributed = true
			st.TokensAllocated = perCollection
			e.logger.Warn("collection has no volume, share left undistributed",
				"collection", c, "share", perCollection)
			stats = append(stats, st)
			continue
		}

		allocated := decimal.Zero
		for addr, v := range volumes {
			amount := v.CollectionVolume(c)
			if amount.Sign() == 0 {
				continue
			}
			share := perCollection.Mul(amount).DivRound(totals[c], entity.TokenDecimals)
			allocations[addr] = allocations[addr].Add(share)
			allocated = allocated.Add(share)
		}
		st.TokensAllocated = allocated
		stats = append(stats, st)
	}

	return e.entries(allocations, volumes), stats, nil
}

// ByTotalVolume allocates the whole supply pro-rata by each address's
// share of the combined volume across every pool. With zero total volume
// nothing is distributed and the schedule is empty.
func (e *Engine) ByTotalVolume(volumes map[string]*entity.AddressVolume) ([]entity.AllocationEntry, error) {
	total := decimal.Zero
	for _, v := range volumes {
		total = total.Add(v.TotalVolume)
	}
	if total.Sign() == 0 {
		e.logger.Warn("no volume recorded, nothing to distribute")
		return nil, nil
	}

	allocations := make(map[string]decimal.Decimal, len(volumes))
	for addr, v := range volumes {
		if v.TotalVolume.Sign() == 0 {
			continue
		}
		allocations[addr] = e.totalSupply.Mul(v.TotalVolume).DivRound(total, entity.TokenDecimals)
	}

	return e.entries(allocations, volumes), nil
}

func (e *Engine) entries(allocations map[string]decimal.Decimal, volumes map[string]*entity.AddressVolume) []entity.AllocationEntry {
	out := make([]entity.AllocationEntry, 0, len(allocations))
	for addr, allocation := range allocations {
		if allocation.Sign() == 0 {
			continue
		}
		out = append(out, entity.AllocationEntry{
			Address:    addr,
			Allocation: allocation,
			Volume:     volumes[addr],
		})
	}
	Rank(out)
	return out
}
