package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/berachain-tools/beradrop/internal/adapters/outbound/memory"
	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/pkg/retry"
)

// fastRetry keeps test backoffs in the microsecond range.
func fastRetry(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func newTestScanner(t *testing.T, chain *memory.ChainSource, config Config) *Scanner {
	t.Helper()

	decoder, err := NewDecoder(chain, nil, nil)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	scanner, err := New(chain, decoder, config)
	if err != nil {
		t.Fatalf("failed to create scanner: %v", err)
	}
	return scanner
}

func testPool(t *testing.T) entity.Pool {
	t.Helper()

	pool, err := entity.NewPool("YEETARD", testPoolAddr, "yeetards")
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	return pool
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		from      int64
		to        int64
		chunkSize int64
		want      []blockRange
	}{
		{
			name:      "range smaller than one chunk",
			from:      100,
			to:        150,
			chunkSize: 5000,
			want:      []blockRange{{100, 150}},
		},
		{
			name:      "single block",
			from:      42,
			to:        42,
			chunkSize: 5000,
			want:      []blockRange{{42, 42}},
		},
		{
			name:      "exact multiple of chunk size",
			from:      0,
			to:        9999,
			chunkSize: 5000,
			want:      []blockRange{{0, 4999}, {5000, 9999}},
		},
		{
			name:      "partial trailing chunk",
			from:      0,
			to:        10500,
			chunkSize: 5000,
			want:      []blockRange{{0, 4999}, {5000, 9999}, {10000, 10500}},
		},
		{
			name:      "chunk size one",
			from:      5,
			to:        7,
			chunkSize: 1,
			want:      []blockRange{{5, 5}, {6, 6}, {7, 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitRange(tt.from, tt.to, tt.chunkSize)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d sub-ranges, got %d: %v", len(tt.want), len(got), got)
			}
			for i, want := range tt.want {
				if got[i] != want {
					t.Errorf("sub-range %d: expected %+v, got %+v", i, want, got[i])
				}
			}
		})
	}
}

func TestScan_CollectsTradesAcrossChunks(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 10, 0, amountWord(100)))
	chain.AddLog(swapLog("0x01", 5020, 1, amountWord(200)))
	chain.AddLog(swapLog("0x01", 10050, 2, amountWord(300)))

	scanner := newTestScanner(t, chain, Config{ChunkSize: 5000, Retry: fastRetry(2)})

	records, err := scanner.Scan(context.Background(), testPool(t), 0, 10500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Sub-ranges are processed in ascending order.
	wantBlocks := []int64{10, 5020, 10050}
	for i, record := range records {
		if record.BlockNumber != wantBlocks[i] {
			t.Errorf("record %d: expected block %d, got %d", i, wantBlocks[i], record.BlockNumber)
		}
	}
	if chain.FilterCalls() != 3 {
		t.Errorf("expected 3 FilterLogs calls, got %d", chain.FilterCalls())
	}
}

func TestScan_IgnoresLogsFromOtherContracts(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 10, 0, amountWord(100)))

	other := swapLog("0x01", 11, 1, amountWord(999))
	other.Address = testTraderAddr
	chain.AddLog(other)

	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(2)})

	records, err := scanner.Scan(context.Background(), testPool(t), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestScan_RetriesTransientFailure(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 100, 0, amountWord(100)))
	chain.FailFilterLogs(0, 4999, 2)

	scanner := newTestScanner(t, chain, Config{ChunkSize: 5000, Retry: fastRetry(3)})

	records, err := scanner.Scan(context.Background(), testPool(t), 0, 4999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if chain.FilterCalls() != 3 {
		t.Errorf("expected 3 FilterLogs calls, got %d", chain.FilterCalls())
	}
}

func TestScan_IncompleteAfterRetryBudget(t *testing.T) {
	chain := memory.NewChainSource()
	chain.FailFilterLogs(0, 4999, 100)

	scanner := newTestScanner(t, chain, Config{ChunkSize: 5000, Retry: fastRetry(2)})

	_, err := scanner.Scan(context.Background(), testPool(t), 0, 4999)
	if !errors.Is(err, ErrScanIncomplete) {
		t.Fatalf("expected ErrScanIncomplete, got: %v", err)
	}
	// Initial attempt plus two retries.
	if chain.FilterCalls() != 3 {
		t.Errorf("expected 3 FilterLogs calls, got %d", chain.FilterCalls())
	}
}

func TestScan_MalformedEventAbortsWithoutRetry(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 10, 0, "0xdead"))

	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(5)})

	_, err := scanner.Scan(context.Background(), testPool(t), 0, 100)

	var malformed *MalformedEventError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedEventError, got: %v", err)
	}
	if errors.Is(err, ErrScanIncomplete) {
		t.Error("malformed events must not be classified as incomplete scans")
	}
	if chain.FilterCalls() != 1 {
		t.Errorf("expected 1 FilterLogs call, got %d", chain.FilterCalls())
	}
}

func TestScan_ResolvesHeadForNegativeToBlock(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetLatestBlock(120)
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 110, 0, amountWord(100)))
	chain.AddLog(swapLog("0x01", 500, 1, amountWord(200)))

	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(2)})

	records, err := scanner.Scan(context.Background(), testPool(t), 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The log past the resolved head is out of range.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestScan_InvalidRange(t *testing.T) {
	chain := memory.NewChainSource()
	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(2)})

	if _, err := scanner.Scan(context.Background(), testPool(t), 200, 100); err == nil {
		t.Error("expected error for toBlock before fromBlock")
	}
	if _, err := scanner.Scan(context.Background(), testPool(t), -5, 100); err == nil {
		t.Error("expected error for negative fromBlock")
	}
}

func TestScan_ContextCancelled(t *testing.T) {
	chain := memory.NewChainSource()
	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(2)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx, testPool(t), 0, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if errors.Is(err, ErrScanIncomplete) {
		t.Error("cancellation must not be classified as an incomplete scan")
	}
}

func TestForEachTrade_CallbackErrorStopsScan(t *testing.T) {
	chain := memory.NewChainSource()
	chain.SetSender(common.HexToHash("0x01"), common.HexToAddress(testTraderAddr))
	chain.AddLog(swapLog("0x01", 10, 0, amountWord(100)))
	chain.AddLog(swapLog("0x01", 20, 1, amountWord(200)))

	scanner := newTestScanner(t, chain, Config{Retry: fastRetry(2)})

	sentinel := errors.New("stop")
	seen := 0
	err := scanner.ForEachTrade(context.Background(), testPool(t), 0, 100, func(entity.TradeRecord) error {
		seen++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if seen != 1 {
		t.Errorf("expected callback to run once, got %d", seen)
	}
}
