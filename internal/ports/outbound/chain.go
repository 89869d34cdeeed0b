// Package outbound defines the ports through which the airdrop services
// talk to the outside world: the chain RPC transport, the sender cache,
// result persistence and report writers.
package outbound

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// RawLog is one event log entry as returned by eth_getLogs. Numeric
// fields keep the wire's hex-quantity encoding; adapters do not interpret
// them.
type RawLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// ChainSource is the transport capability consumed by the scanner. A call
// either returns the complete result for the requested range or an error;
// implementations must not return partial log sets alongside an error.
type ChainSource interface {
	// FilterLogs fetches all logs emitted by address with topic0 == topic
	// in the inclusive block range [fromBlock, toBlock].
	FilterLogs(ctx context.Context, address common.Address, topic common.Hash, fromBlock, toBlock int64) ([]RawLog, error)

	// TransactionSender resolves the externally-owned account that sent
	// the transaction.
	TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)

	// LatestBlockNumber returns the current chain head block number.
	LatestBlockNumber(ctx context.Context) (int64, error)
}
