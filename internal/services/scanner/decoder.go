package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/berachain-tools/beradrop/internal/adapters/outbound/rpc"
	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/pkg/hexutil"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// SwapNFTOutPairSignature is the traded event's Solidity signature.
const SwapNFTOutPairSignature = "SwapNFTOutPair(uint256,uint256[],uint256)"

// SwapNFTOutPairTopic is the topic0 hash the scanner filters on.
var SwapNFTOutPairTopic = crypto.Keccak256Hash([]byte(SwapNFTOutPairSignature))

// amountWordSize is the length of the big-endian amount word at the head
// of the event's data payload.
const amountWordSize = 32

// Decoder converts raw log entries into trade records. The trader is the
// externally-owned account that sent the originating transaction, so a
// trade relayed through a router contract still attributes volume to the
// account that initiated it.
type Decoder struct {
	chain  outbound.ChainSource
	cache  outbound.SenderCache
	logger *slog.Logger
}

// NewDecoder creates a Decoder. cache may be nil to disable sender
// caching.
func NewDecoder(chain outbound.ChainSource, cache outbound.SenderCache, logger *slog.Logger) (*Decoder, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		chain:  chain,
		cache:  cache,
		logger: logger.With("component", "event-decoder"),
	}, nil
}

// Decode builds a TradeRecord from one raw log. It returns a
// *MalformedEventError for payloads that can never decode (short data,
// unknown transaction); transport failures during the sender lookup are
// returned as-is so the caller can retry the sub-range.
func (d *Decoder) Decode(ctx context.Context, raw outbound.RawLog) (entity.TradeRecord, error) {
	txHash := common.HexToHash(raw.TransactionHash)

	logIndex, err := hexutil.ParseInt64(raw.LogIndex)
	if err != nil {
		return entity.TradeRecord{}, &MalformedEventError{TxHash: txHash, Reason: "invalid logIndex", Err: err}
	}
	blockNumber, err := hexutil.ParseInt64(raw.BlockNumber)
	if err != nil {
		return entity.TradeRecord{}, &MalformedEventError{TxHash: txHash, LogIndex: logIndex, Reason: "invalid blockNumber", Err: err}
	}

	data := common.FromHex(raw.Data)
	if len(data) < amountWordSize {
		return entity.TradeRecord{}, &MalformedEventError{
			TxHash:   txHash,
			LogIndex: logIndex,
			Reason:   fmt.Sprintf("data payload is %d bytes, need at least %d", len(data), amountWordSize),
		}
	}
	amount := new(big.Int).SetBytes(data[:amountWordSize])

	trader, err := d.sender(ctx, txHash)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return entity.TradeRecord{}, &MalformedEventError{TxHash: txHash, LogIndex: logIndex, Reason: "transaction not found", Err: err}
		}
		return entity.TradeRecord{}, fmt.Errorf("sender lookup for %s: %w", txHash.Hex(), err)
	}

	record, err := entity.NewTradeRecord(common.HexToAddress(raw.Address), txHash, blockNumber, logIndex, trader, amount)
	if err != nil {
		return entity.TradeRecord{}, &MalformedEventError{TxHash: txHash, LogIndex: logIndex, Reason: "invalid record", Err: err}
	}
	return record, nil
}

// sender resolves the transaction's from address, consulting the cache
// first. Cache errors are logged and degrade to a direct lookup.
func (d *Decoder) sender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	if d.cache != nil {
		cached, ok, err := d.cache.Get(ctx, txHash)
		if err != nil {
			d.logger.Warn("sender cache read failed", "tx", txHash.Hex(), "error", err)
		} else if ok {
			return cached, nil
		}
	}

	sender, err := d.chain.TransactionSender(ctx, txHash)
	if err != nil {
		return common.Address{}, err
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, txHash, sender); err != nil {
			d.logger.Warn("sender cache write failed", "tx", txHash.Hex(), "error", err)
		}
	}
	return sender, nil
}
