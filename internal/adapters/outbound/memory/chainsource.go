// chainsource.go provides an in-memory implementation of ChainSource.
//
// This adapter serves canned logs and transactions for testing. Failures
// can be scripted per block range via FailFilterLogs to exercise the
// scanner's retry behavior. All operations are thread-safe.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/berachain-tools/beradrop/internal/pkg/hexutil"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that ChainSource implements outbound.ChainSource
var _ outbound.ChainSource = (*ChainSource)(nil)

// ChainSource is an in-memory implementation of the ChainSource port.
type ChainSource struct {
	mu          sync.RWMutex
	logs        []outbound.RawLog
	senders     map[common.Hash]common.Address
	latestBlock int64

	// remaining scripted failures keyed by "from-to"
	failures map[string]int

	filterCalls int
	senderCalls int
}

// NewChainSource creates an empty in-memory chain.
func NewChainSource() *ChainSource {
	return &ChainSource{
		senders:  make(map[common.Hash]common.Address),
		failures: make(map[string]int),
	}
}

// AddLog registers a log entry served by FilterLogs.
func (c *ChainSource) AddLog(log outbound.RawLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
}

// SetSender registers the sender returned for a transaction hash.
func (c *ChainSource) SetSender(txHash common.Hash, sender common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.senders[txHash] = sender
}

// SetLatestBlock sets the block number returned by LatestBlockNumber.
func (c *ChainSource) SetLatestBlock(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latestBlock = n
}

// FailFilterLogs scripts the next n FilterLogs calls for [from, to] to
// fail with a transient error.
func (c *ChainSource) FailFilterLogs(from, to int64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[rangeKey(from, to)] = n
}

// FilterLogs returns the registered logs for the address, topic and range,
// in insertion order.
func (c *ChainSource) FilterLogs(ctx context.Context, address common.Address, topic common.Hash, fromBlock, toBlock int64) ([]outbound.RawLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filterCalls++

	key := rangeKey(fromBlock, toBlock)
	if c.failures[key] > 0 {
		c.failures[key]--
		return nil, fmt.Errorf("injected transport failure for blocks [%d, %d]", fromBlock, toBlock)
	}

	var out []outbound.RawLog
	for _, log := range c.logs {
		if !strings.EqualFold(log.Address, address.Hex()) {
			continue
		}
		if len(log.Topics) == 0 || !strings.EqualFold(log.Topics[0], topic.Hex()) {
			continue
		}
		block, err := hexutil.ParseInt64(log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("bad fixture blockNumber %q: %w", log.BlockNumber, err)
		}
		if block >= fromBlock && block <= toBlock {
			out = append(out, log)
		}
	}
	return out, nil
}

// TransactionSender returns the registered sender, or an error when none
// was set.
func (c *ChainSource) TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.senderCalls++

	sender, ok := c.senders[txHash]
	if !ok {
		return common.Address{}, fmt.Errorf("transaction %s not found", txHash.Hex())
	}
	return sender, nil
}

// LatestBlockNumber returns the configured head block.
func (c *ChainSource) LatestBlockNumber(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestBlock, nil
}

// FilterCalls returns how many FilterLogs calls were made.
func (c *ChainSource) FilterCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filterCalls
}

// SenderCalls returns how many TransactionSender calls were made.
func (c *ChainSource) SenderCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.senderCalls
}

func rangeKey(from, to int64) string {
	return fmt.Sprintf("%d-%d", from, to)
}
