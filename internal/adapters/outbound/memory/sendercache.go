// sendercache.go provides an in-memory implementation of SenderCache.
package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that SenderCache implements outbound.SenderCache
var _ outbound.SenderCache = (*SenderCache)(nil)

// SenderCache is a thread-safe in-memory transaction-sender cache.
type SenderCache struct {
	mu      sync.RWMutex
	senders map[common.Hash]common.Address
}

// NewSenderCache creates an empty cache.
func NewSenderCache() *SenderCache {
	return &SenderCache{senders: make(map[common.Hash]common.Address)}
}

// Get returns the cached sender for txHash.
func (c *SenderCache) Get(ctx context.Context, txHash common.Hash) (common.Address, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sender, ok := c.senders[txHash]
	return sender, ok, nil
}

// Set stores the sender for txHash.
func (c *SenderCache) Set(ctx context.Context, txHash common.Hash, sender common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.senders[txHash] = sender
	return nil
}

// Len returns the number of cached entries.
func (c *SenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.senders)
}
