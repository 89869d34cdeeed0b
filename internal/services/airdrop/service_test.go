package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/berachain-tools/beradrop/internal/adapters/outbound/memory"
	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/pkg/retry"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
	"github.com/berachain-tools/beradrop/internal/services/scanner"
)

const (
	poolYeetard = "0xe9171252d2EEc5BA1eefB6e2FEf62BC32c061AFA"
	poolBulla   = "0x94Ec985F8A536f795022Bac78C0BE0c2cfB95b37"

	traderA = "0x304F9c77C303Eb9445f81Ba6De3d0d516372Ea97"
	traderB = "0x599F5bB23f888fF7eBB16E1422eF8aFf5a81cCcf"
)

func testPools(t *testing.T) *entity.PoolSet {
	t.Helper()

	yeetard, err := entity.NewPool("YEETARD", poolYeetard, "yeetards")
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	bulla, err := entity.NewPool("BULLA_1", poolBulla, "bullas")
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	set, err := entity.NewPoolSet([]entity.Pool{yeetard, bulla})
	if err != nil {
		t.Fatalf("failed to create pool set: %v", err)
	}
	return set
}

func addSwap(chain *memory.ChainSource, pool, txHash string, block, logIndex, wholeTokens int64) {
	wei := new(big.Int).Mul(big.NewInt(wholeTokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(entity.TokenDecimals), nil))
	chain.AddLog(outbound.RawLog{
		Address:         pool,
		Topics:          []string{scanner.SwapNFTOutPairTopic.Hex()},
		Data:            fmt.Sprintf("0x%064x", wei),
		BlockNumber:     fmt.Sprintf("0x%x", block),
		TransactionHash: txHash,
		LogIndex:        fmt.Sprintf("0x%x", logIndex),
	})
}

func newTestService(t *testing.T, chain *memory.ChainSource, config Config) *Service {
	t.Helper()

	decoder, err := scanner.NewDecoder(chain, memory.NewSenderCache(), nil)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	sc, err := scanner.New(chain, decoder, scanner.Config{
		ChunkSize: 5000,
		Retry: retry.Config{
			MaxRetries:     2,
			InitialBackoff: time.Microsecond,
			MaxBackoff:     time.Millisecond,
			BackoffFactor:  2.0,
		},
	})
	if err != nil {
		t.Fatalf("failed to create scanner: %v", err)
	}
	if config.Pools == nil {
		config.Pools = testPools(t)
	}
	service, err := New(sc, chain, nil, nil, config)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

// captureWriter records the report it receives.
type captureWriter struct {
	report *entity.RunReport
	err    error
}

func (w *captureWriter) Write(_ context.Context, report *entity.RunReport) error {
	if w.err != nil {
		return w.err
	}
	w.report = report
	return nil
}

func TestRun_EndToEnd(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetLatestBlock(10_000)
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(traderA))
	chain.SetSender(common.HexToHash("0x02"), common.HexToAddress(traderB))

	// A trades 30 in yeetards; B trades 10 in yeetards and 40 in bullas.
	addSwap(chain, poolYeetard, "0x01", 100, 0, 30)
	addSwap(chain, poolYeetard, "0x02", 200, 0, 10)
	addSwap(chain, poolBulla, "0x02", 300, 1, 40)

	service := newTestService(t, chain, Config{
		TotalSupply: decimal.NewFromInt(100),
		FromBlock:   0,
		ToBlock:     -1,
	})

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ToBlock != 10_000 {
		t.Errorf("expected resolved toBlock 10000, got %d", report.ToBlock)
	}
	if report.Summary.TotalEvents != 3 {
		t.Errorf("expected 3 events, got %d", report.Summary.TotalEvents)
	}
	if report.Summary.UniqueAddresses != 2 {
		t.Errorf("expected 2 addresses, got %d", report.Summary.UniqueAddresses)
	}

	// By collection: 50 each. A gets 3/4 of yeetards' 50; B gets the
	// rest plus all of bullas.
	wantByColl := map[string]string{
		entity.NormalizeAddress(common.HexToAddress(traderA)): "37.5",
		entity.NormalizeAddress(common.HexToAddress(traderB)): "62.5",
	}
	if len(report.ByCollection) != 2 {
		t.Fatalf("expected 2 by-collection entries, got %d", len(report.ByCollection))
	}
	for _, e := range report.ByCollection {
		if want := wantByColl[e.Address]; !e.Allocation.Equal(decimal.RequireFromString(want)) {
			t.Errorf("by-collection %s: expected %s, got %s", e.Address, want, e.Allocation)
		}
	}

	// By total volume: A has 30 of 80, B has 50 of 80.
	wantByTotal := map[string]string{
		entity.NormalizeAddress(common.HexToAddress(traderA)): "37.5",
		entity.NormalizeAddress(common.HexToAddress(traderB)): "62.5",
	}
	for _, e := range report.ByTotal {
		if want := wantByTotal[e.Address]; !e.Allocation.Equal(decimal.RequireFromString(want)) {
			t.Errorf("by-total %s: expected %s, got %s", e.Address, want, e.Allocation)
		}
	}

	// Ranking is allocation descending.
	if report.ByTotal[0].Address != entity.NormalizeAddress(common.HexToAddress(traderB)) {
		t.Errorf("expected trader B ranked first, got %s", report.ByTotal[0].Address)
	}
}

func TestRun_FailedPoolScanFailsRun(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetLatestBlock(100)
	chain.FailFilterLogs(0, 100, 100)

	service := newTestService(t, chain, Config{
		TotalSupply: decimal.NewFromInt(100),
	})

	_, err := service.Run(context.Background())
	if !errors.Is(err, scanner.ErrScanIncomplete) {
		t.Fatalf("expected ErrScanIncomplete, got: %v", err)
	}
}

func TestRun_WritersReceiveReport(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetLatestBlock(100)
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(traderA))
	addSwap(chain, poolYeetard, "0x01", 10, 0, 5)

	writer := &captureWriter{}

	decoder, _ := scanner.NewDecoder(chain, nil, nil)
	sc, _ := scanner.New(chain, decoder, scanner.Config{})
	service, err := New(sc, chain, nil, []outbound.ReportWriter{writer}, Config{
		Pools:       testPools(t),
		TotalSupply: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.report != report {
		t.Error("writer did not receive the run report")
	}
}

func TestRun_WriterFailureFailsRun(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetLatestBlock(100)

	writer := &captureWriter{err: errors.New("disk full")}

	decoder, _ := scanner.NewDecoder(chain, nil, nil)
	sc, _ := scanner.New(chain, decoder, scanner.Config{})
	service, err := New(sc, chain, nil, []outbound.ReportWriter{writer}, Config{
		Pools:       testPools(t),
		TotalSupply: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.Run(context.Background()); err == nil {
		t.Error("expected export failure to fail the run")
	}
}

func TestNew_Validation(t *testing.T) {
	chain := memory.NewChainSource()
	decoder, _ := scanner.NewDecoder(chain, nil, nil)
	sc, _ := scanner.New(chain, decoder, scanner.Config{})

	if _, err := New(nil, chain, nil, nil, Config{Pools: testPools(t)}); err == nil {
		t.Error("expected error for nil scanner")
	}
	if _, err := New(sc, chain, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil pool set")
	}
	if _, err := New(sc, chain, nil, nil, Config{Pools: testPools(t), TotalSupply: decimal.NewFromInt(-5)}); err == nil {
		t.Error("expected error for negative supply")
	}
	if _, err := New(sc, chain, nil, nil, Config{Pools: testPools(t), FromBlock: -1}); err == nil {
		t.Error("expected error for negative fromBlock")
	}
}
