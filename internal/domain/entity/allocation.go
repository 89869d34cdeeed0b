package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionMethod identifies which allocation algorithm produced a
// schedule.
type DistributionMethod string

const (
	// MethodByCollection splits the supply equally across collections,
	// then pro-rata by volume within each collection.
	MethodByCollection DistributionMethod = "by_collection"
	// MethodByTotalVolume distributes the whole supply pro-rata by each
	// address's share of total volume across all pools.
	MethodByTotalVolume DistributionMethod = "by_total_volume"
)

// AllocationEntry is one address's allocation under one distribution
// method, together with the volume data that produced it.
type AllocationEntry struct {
	Address    string
	Allocation decimal.Decimal
	Volume     *AddressVolume
}

// CollectionStats summarizes one collection's activity and its share of
// the supply. Undistributed is true when the collection had zero volume
// and its share could not be allocated.
type CollectionStats struct {
	Collection      string
	TotalVolume     decimal.Decimal
	UniqueTraders   int
	TokensAllocated decimal.Decimal
	Undistributed   bool
}

// RunSummary is the run-level summary block of a report.
type RunSummary struct {
	TotalSupply        decimal.Decimal
	UniqueAddresses    int
	TotalEvents        int
	Pools              []string
	CollectionStats    []CollectionStats
	DistributedByColl  decimal.Decimal
	UndistributedColl  decimal.Decimal
	DistributedByTotal decimal.Decimal
}

// RunReport is the final structure handed to export collaborators. Both
// rankings are ordered by allocation descending with ties broken by
// address ascending, so two runs over the same input serialize
// identically.
type RunReport struct {
	GeneratedAt  time.Time
	FromBlock    int64
	ToBlock      int64
	Summary      RunSummary
	ByCollection []AllocationEntry
	ByTotal      []AllocationEntry
}
