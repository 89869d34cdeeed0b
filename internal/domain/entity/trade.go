package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point scale of the traded token (wei-style
// 18-decimal smallest units).
const TokenDecimals = 18

// TradeRecord is one decoded SwapNFTOutPair event. It is uniquely
// identified by (TxHash, LogIndex); retried scan ranges may surface the
// same record twice and downstream aggregation must count it once.
type TradeRecord struct {
	Pool        common.Address
	TxHash      common.Hash
	BlockNumber int64
	LogIndex    int64
	Trader      common.Address
	AmountWei   *big.Int
}

// NewTradeRecord creates a validated TradeRecord.
func NewTradeRecord(pool common.Address, txHash common.Hash, blockNumber, logIndex int64, trader common.Address, amountWei *big.Int) (TradeRecord, error) {
	r := TradeRecord{
		Pool:        pool,
		TxHash:      txHash,
		BlockNumber: blockNumber,
		LogIndex:    logIndex,
		Trader:      trader,
		AmountWei:   amountWei,
	}
	if err := r.validate(); err != nil {
		return TradeRecord{}, err
	}
	return r, nil
}

func (r TradeRecord) validate() error {
	if r.BlockNumber < 0 {
		return fmt.Errorf("blockNumber must be non-negative, got %d", r.BlockNumber)
	}
	if r.LogIndex < 0 {
		return fmt.Errorf("logIndex must be non-negative, got %d", r.LogIndex)
	}
	if r.AmountWei == nil {
		return fmt.Errorf("amountWei must not be nil")
	}
	if r.AmountWei.Sign() < 0 {
		return fmt.Errorf("amountWei must be non-negative")
	}
	return nil
}

// ID returns the record's unique identity, used for deduplication.
func (r TradeRecord) ID() string {
	return fmt.Sprintf("%s:%d", r.TxHash.Hex(), r.LogIndex)
}

// AmountTokens converts the raw wei amount to whole token units without
// any floating-point rounding.
func (r TradeRecord) AmountTokens() decimal.Decimal {
	return decimal.NewFromBigInt(r.AmountWei, -TokenDecimals)
}
