// allocationstore.go provides a PostgreSQL implementation of AllocationStore.
//
// This adapter persists one row per (run, method, address) allocation
// plus run metadata and per-collection statistics. Saving the same run
// twice is a no-op, so a crashed export can be re-run safely. The schema
// is defined in migrations/001_initial_schema.sql and is applied via the
// Migrate() method.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// Compile-time check that AllocationStore implements outbound.AllocationStore
var _ outbound.AllocationStore = (*AllocationStore)(nil)

// AllocationStore is a PostgreSQL implementation of the
// outbound.AllocationStore port.
type AllocationStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAllocationStore creates a new PostgreSQL allocation store.
func NewAllocationStore(pool *pgxpool.Pool, logger *slog.Logger) (*AllocationStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AllocationStore{
		pool:   pool,
		logger: logger.With("component", "allocation-store"),
	}, nil
}

// Pool returns the underlying connection pool for advanced queries.
func (s *AllocationStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate creates the run, allocation and collection stats tables if
// they don't exist.
func (s *AllocationStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, initialSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SaveRun persists the report under runID inside one transaction. A
// runID that already exists leaves the stored run untouched.
func (s *AllocationStore) SaveRun(ctx context.Context, runID string, report *entity.RunReport) error {
	if runID == "" {
		return fmt.Errorf("run ID is required")
	}
	if report == nil {
		return fmt.Errorf("report is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			s.logger.Warn("failed to roll back transaction", "error", err)
		}
	}()

	tag, err := tx.Exec(ctx, `
		INSERT INTO airdrop_runs (run_id, generated_at, from_block, to_block, total_supply, unique_addresses, total_events)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING
	`, runID, report.GeneratedAt, report.FromBlock, report.ToBlock,
		report.Summary.TotalSupply, report.Summary.UniqueAddresses, report.Summary.TotalEvents)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Info("run already persisted, skipping", "runID", runID)
		return nil
	}

	batch := &pgx.Batch{}
	queueSchedule(batch, runID, entity.MethodByCollection, report.ByCollection)
	queueSchedule(batch, runID, entity.MethodByTotalVolume, report.ByTotal)
	for _, st := range report.Summary.CollectionStats {
		batch.Queue(`
			INSERT INTO airdrop_collection_stats (run_id, collection, total_volume, unique_traders, tokens_allocated, undistributed)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, st.Collection, st.TotalVolume, st.UniqueTraders, st.TokensAllocated, st.Undistributed)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to save allocations for run %s: %w", runID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch for run %s: %w", runID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}

	s.logger.Info("run persisted",
		"runID", runID,
		"byCollection", len(report.ByCollection),
		"byTotal", len(report.ByTotal))
	return nil
}

func queueSchedule(batch *pgx.Batch, runID string, method entity.DistributionMethod, entries []entity.AllocationEntry) {
	for rank, e := range entries {
		totalVolume := "0"
		txCount := 0
		if e.Volume != nil {
			totalVolume = e.Volume.TotalVolume.String()
			txCount = e.Volume.TxCount
		}
		batch.Queue(`
			INSERT INTO airdrop_allocations (run_id, method, rank, address, allocation, total_volume, tx_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, string(method), rank+1, e.Address, e.Allocation, totalVolume, txCount)
	}
}

// LoadSchedule returns one run's schedule for a method in rank order.
func (s *AllocationStore) LoadSchedule(ctx context.Context, runID string, method entity.DistributionMethod) ([]entity.AllocationEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, allocation
		FROM airdrop_allocations
		WHERE run_id = $1 AND method = $2
		ORDER BY rank
	`, runID, string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []entity.AllocationEntry
	for rows.Next() {
		var e entity.AllocationEntry
		if err := rows.Scan(&e.Address, &e.Allocation); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schedule for run %s: %w", runID, err)
	}
	return entries, nil
}
