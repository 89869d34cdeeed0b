package outbound

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// SenderCache caches transaction-hash → sender lookups so that retried
// sub-ranges and transactions carrying several swap logs do not hit the
// RPC transport repeatedly. A cache miss is not an error.
type SenderCache interface {
	// Get returns the cached sender for txHash, and whether it was found.
	Get(ctx context.Context, txHash common.Hash) (common.Address, bool, error)

	// Set stores the sender for txHash.
	Set(ctx context.Context, txHash common.Hash, sender common.Address) error
}
