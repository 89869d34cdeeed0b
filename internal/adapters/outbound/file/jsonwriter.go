// Package file implements report export to local JSON and CSV files.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that JSONWriter implements outbound.ReportWriter
var _ outbound.ReportWriter = (*JSONWriter)(nil)

// JSONWriter exports the full run report as one JSON document.
type JSONWriter struct {
	path   string
	logger *slog.Logger
}

// NewJSONWriter creates a JSONWriter targeting path.
func NewJSONWriter(path string, logger *slog.Logger) (*JSONWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONWriter{
		path:   path,
		logger: logger.With("component", "json-writer"),
	}, nil
}

type jsonCollectionStats struct {
	TotalVolume     decimal.Decimal `json:"total_volume"`
	UniqueTraders   int             `json:"unique_traders"`
	TokensAllocated decimal.Decimal `json:"tokens_allocated"`
	Undistributed   bool            `json:"undistributed,omitempty"`
}

type jsonSummary struct {
	GeneratedAt      string                         `json:"generated_at"`
	FromBlock        int64                          `json:"from_block"`
	ToBlock          int64                          `json:"to_block"`
	TotalDistributed decimal.Decimal                `json:"total_tokens_distributed"`
	UniqueAddresses  int                            `json:"unique_addresses"`
	TotalEvents      int                            `json:"total_events"`
	PoolsAnalyzed    []string                       `json:"pools_analyzed"`
	CollectionStats  map[string]jsonCollectionStats `json:"collection_stats"`
}

type jsonAllocation struct {
	Allocation       decimal.Decimal            `json:"allocation"`
	TotalVolume      decimal.Decimal            `json:"total_volume"`
	TransactionCount int                        `json:"transaction_count"`
	Collections      map[string]decimal.Decimal `json:"collections_traded"`
}

type jsonReport struct {
	Summary        jsonSummary               `json:"summary"`
	ByCollection   map[string]jsonAllocation `json:"distribution_by_collection"`
	ByTotalVolume  map[string]jsonAllocation `json:"distribution_by_volume"`
	RankCollection []string                  `json:"ranking_by_collection"`
	RankVolume     []string                  `json:"ranking_by_volume"`
}

// Write serializes the report to the configured path, creating parent
// directories as needed.
func (w *JSONWriter) Write(_ context.Context, report *entity.RunReport) error {
	doc := jsonReport{
		Summary: jsonSummary{
			GeneratedAt:      report.GeneratedAt.Format(time.RFC3339),
			FromBlock:        report.FromBlock,
			ToBlock:          report.ToBlock,
			TotalDistributed: report.Summary.TotalSupply,
			UniqueAddresses:  report.Summary.UniqueAddresses,
			TotalEvents:      report.Summary.TotalEvents,
			PoolsAnalyzed:    report.Summary.Pools,
			CollectionStats:  make(map[string]jsonCollectionStats, len(report.Summary.CollectionStats)),
		},
		ByCollection:  make(map[string]jsonAllocation, len(report.ByCollection)),
		ByTotalVolume: make(map[string]jsonAllocation, len(report.ByTotal)),
	}

	for _, st := range report.Summary.CollectionStats {
		doc.Summary.CollectionStats[st.Collection] = jsonCollectionStats{
			TotalVolume:     st.TotalVolume,
			UniqueTraders:   st.UniqueTraders,
			TokensAllocated: st.TokensAllocated,
			Undistributed:   st.Undistributed,
		}
	}
	for _, e := range report.ByCollection {
		doc.ByCollection[e.Address] = allocationDoc(e)
		doc.RankCollection = append(doc.RankCollection, e.Address)
	}
	for _, e := range report.ByTotal {
		doc.ByTotalVolume[e.Address] = allocationDoc(e)
		doc.RankVolume = append(doc.RankVolume, e.Address)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}

	w.logger.Info("report written", "path", w.path, "bytes", len(data))
	return nil
}

func allocationDoc(e entity.AllocationEntry) jsonAllocation {
	doc := jsonAllocation{
		Allocation: e.Allocation,
	}
	if e.Volume != nil {
		doc.TotalVolume = e.Volume.TotalVolume
		doc.TransactionCount = e.Volume.TxCount
		doc.Collections = e.Volume.Collections
	}
	return doc
}
