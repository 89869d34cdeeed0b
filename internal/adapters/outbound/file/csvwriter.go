package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that CSVWriter implements outbound.ReportWriter
var _ outbound.ReportWriter = (*CSVWriter)(nil)

// CSVWriter exports one distribution schedule as an address,amount CSV.
// Amounts are written in wei (18-decimal smallest units) and addresses
// with a zero allocation are omitted, matching the format token
// disperser tools ingest.
type CSVWriter struct {
	path   string
	method entity.DistributionMethod
	logger *slog.Logger
}

// NewCSVWriter creates a CSVWriter exporting the given method's schedule
// to path.
func NewCSVWriter(path string, method entity.DistributionMethod, logger *slog.Logger) (*CSVWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	switch method {
	case entity.MethodByCollection, entity.MethodByTotalVolume:
	default:
		return nil, fmt.Errorf("unknown distribution method %q", method)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		path:   path,
		method: method,
		logger: logger.With("component", "csv-writer", "method", string(method)),
	}, nil
}

// Write exports the schedule in ranked order.
func (w *CSVWriter) Write(_ context.Context, report *entity.RunReport) error {
	var entries []entity.AllocationEntry
	switch w.method {
	case entity.MethodByCollection:
		entries = report.ByCollection
	case entity.MethodByTotalVolume:
		entries = report.ByTotal
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"address", "amount"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rows := 0
	for _, e := range entries {
		if e.Allocation.Sign() <= 0 {
			continue
		}
		wei := e.Allocation.Shift(entity.TokenDecimals).Truncate(0)
		if err := cw.Write([]string{e.Address, wei.String()}); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", e.Address, err)
		}
		rows++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	w.logger.Info("schedule written", "path", w.path, "rows", rows)
	return nil
}
