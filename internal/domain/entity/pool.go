// Package entity contains the domain types for the airdrop calculation:
// pool descriptors, decoded trade records, aggregated volumes and the
// resulting allocation schedules.
package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Pool describes one liquidity-pool contract included in the scan.
// Several pools may share the same collection tag; the collection is the
// unit that receives an equal share under by-collection distribution.
type Pool struct {
	Name       string
	Address    common.Address
	Collection string
}

// NewPool creates a validated Pool descriptor.
func NewPool(name, address, collection string) (Pool, error) {
	if name == "" {
		return Pool{}, fmt.Errorf("pool name must not be empty")
	}
	if collection == "" {
		return Pool{}, fmt.Errorf("pool %s: collection must not be empty", name)
	}
	if !common.IsHexAddress(address) {
		return Pool{}, fmt.Errorf("pool %s: invalid contract address %q", name, address)
	}
	return Pool{
		Name:       name,
		Address:    common.HexToAddress(address),
		Collection: collection,
	}, nil
}

// PoolSet is the immutable pool configuration for one run.
type PoolSet struct {
	pools        []Pool
	byAddress    map[common.Address]Pool
	collections  []string
	collectionOf map[common.Address]string
}

// NewPoolSet builds a PoolSet from descriptors, rejecting duplicate
// contract addresses. Collection order follows first appearance.
func NewPoolSet(pools []Pool) (*PoolSet, error) {
	if len(pools) == 0 {
		return nil, fmt.Errorf("at least one pool is required")
	}

	set := &PoolSet{
		byAddress:    make(map[common.Address]Pool, len(pools)),
		collectionOf: make(map[common.Address]string, len(pools)),
	}

	seen := make(map[string]bool)
	for _, p := range pools {
		if _, dup := set.byAddress[p.Address]; dup {
			return nil, fmt.Errorf("duplicate pool address %s", p.Address.Hex())
		}
		set.pools = append(set.pools, p)
		set.byAddress[p.Address] = p
		set.collectionOf[p.Address] = p.Collection
		if !seen[p.Collection] {
			seen[p.Collection] = true
			set.collections = append(set.collections, p.Collection)
		}
	}

	return set, nil
}

// Pools returns the configured pools in declaration order.
func (s *PoolSet) Pools() []Pool {
	out := make([]Pool, len(s.pools))
	copy(out, s.pools)
	return out
}

// Collections returns the distinct collection tags in first-appearance order.
func (s *PoolSet) Collections() []string {
	out := make([]string, len(s.collections))
	copy(out, s.collections)
	return out
}

// CollectionFor resolves the collection tag of a pool contract address.
func (s *PoolSet) CollectionFor(address common.Address) (string, bool) {
	c, ok := s.collectionOf[address]
	return c, ok
}

// NormalizeAddress lowercases a hex address so that trader identity is
// case-insensitive across checksummed and plain encodings.
func NormalizeAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}
